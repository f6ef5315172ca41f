package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gamestats/internal/backend"
	"gamestats/internal/counters"
	"gamestats/internal/stats"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var now = time.Now

type reportSummary struct {
	TotalPlayers         int     `json:"totalPlayers"`
	TotalGames           int     `json:"totalGames"`
	TotalLevelsCompleted int     `json:"totalLevelsCompleted"`
	TotalKeysCollected   int     `json:"totalKeysCollected"`
	TotalCEOPromotions   int     `json:"totalCEOPromotions"`
	ActiveDays           int     `json:"activeDays"`
	AverageLevelsPerGame float64 `json:"averageLevelsPerGame"`
	CompletionRate       float64 `json:"completionRate"`
}

type report struct {
	GeneratedAt   time.Time           `json:"generatedAt"`
	Summary       reportSummary       `json:"summary"`
	DetailedStats *counters.Aggregate `json:"detailedStats"`
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func buildReport(agg *counters.Aggregate, at time.Time) report {
	return report{
		GeneratedAt: at.UTC(),
		Summary: reportSummary{
			TotalPlayers:         agg.TotalPlayers,
			TotalGames:           agg.TotalGames,
			TotalLevelsCompleted: agg.TotalLevelsCompleted,
			TotalKeysCollected:   agg.TotalKeysCollected,
			TotalCEOPromotions:   agg.TotalCEOPromotions,
			ActiveDays:           agg.ActiveDays(),
			AverageLevelsPerGame: round2(agg.AverageLevelsPerGame()),
			CompletionRate:       round2(agg.CompletionRate()),
		},
		DetailedStats: agg,
	}
}

func writeReport(w io.Writer, r report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func defaultReportName(at time.Time) string {
	return fmt.Sprintf("game_stats_report_%s.json", at.UTC().Format(time.DateOnly))
}

// exportReport writes r to name, or to the dated default name when empty.
func exportReport(name string, r report) (string, error) {
	if name == "" {
		name = defaultReportName(r.GeneratedAt)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	if err := backend.WriteFileAtomic(name, data); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return name, nil
}

func printSummary(w io.Writer, view stats.SummaryView) {
	agg := view.Stats
	p := message.NewPrinter(language.English)

	p.Fprintln(w, "=== Game statistics ===")
	if view.Degraded {
		p.Fprintln(w, "(database unavailable, showing file snapshot)")
	}
	p.Fprintf(w, "Players:          %d\n", agg.TotalPlayers)
	p.Fprintf(w, "Games:            %d\n", agg.TotalGames)
	p.Fprintf(w, "Levels completed: %d\n", agg.TotalLevelsCompleted)
	p.Fprintf(w, "Keys collected:   %d\n", agg.TotalKeysCollected)
	p.Fprintf(w, "CEO promotions:   %d\n", agg.TotalCEOPromotions)
	p.Fprintf(w, "Active days:      %d\n", agg.ActiveDays())
	if agg.TotalGames > 0 {
		p.Fprintf(w, "Levels per game:  %.2f\n", agg.AverageLevelsPerGame())
		p.Fprintf(w, "Completion rate:  %.2f%%\n", agg.CompletionRate())
	}

	p.Fprintln(w)
	p.Fprintln(w, "Level completions:")
	for level := counters.MinLevel; level <= counters.MaxLevel; level++ {
		line := p.Sprintf("  level %d: %d", level, agg.LevelStats[level])
		if avg, ok := agg.LevelAverageAttempts[level]; ok {
			line += p.Sprintf(" (%.1f attempts avg)", avg)
		}
		p.Fprintln(w, line)
	}

	last := "unknown"
	if !agg.LastUpdated.IsZero() {
		last = agg.LastUpdated.Format(time.RFC3339)
	}
	p.Fprintf(w, "\nLast updated: %s\n", last)
}
