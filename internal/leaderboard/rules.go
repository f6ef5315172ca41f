package leaderboard

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"gamestats/internal/counters"
)

func validate(u Update) error {
	if !u.FullRun {
		if !counters.ValidLevel(u.Level) {
			return fmt.Errorf("level %d: %w", u.Level, counters.ErrUnknownLevel)
		}
		if u.Deaths < 0 {
			return ErrNegativeDeaths
		}
		return nil
	}
	if u.ReportedTotal < 0 {
		return ErrNegativeDeaths
	}
	for level, deaths := range u.LevelDeaths {
		if !counters.ValidLevel(level) {
			return fmt.Errorf("level %d: %w", level, counters.ErrUnknownLevel)
		}
		if deaths < 0 {
			return ErrNegativeDeaths
		}
	}
	return nil
}

// Apply folds u into existing (nil when the session has no record yet) and
// returns the resulting record. existing is not modified.
//
// Per-level deaths overwrite the previous value for that level. Completing a
// run stamps CompletedAt once; afterwards only the player name may change, and
// a full-run resubmission is accepted only if it does not lower TotalDeaths.
func Apply(existing *Record, u Update, now time.Time) (Record, error) {
	if err := validate(u); err != nil {
		return Record{}, err
	}
	now = now.UTC()

	var rec Record
	if existing == nil {
		rec = Record{SessionID: u.SessionID, LevelDeaths: map[int]int{}, CreatedAt: now}
	} else {
		rec = *existing
		rec.LevelDeaths = maps.Clone(existing.LevelDeaths)
		if rec.LevelDeaths == nil {
			rec.LevelDeaths = map[int]int{}
		}
	}

	if u.PlayerName != "" {
		rec.PlayerName = u.PlayerName
	}

	switch {
	case rec.Completed:
		if u.FullRun {
			levels, total := runDeaths(u)
			if total > rec.TotalDeaths {
				rec.LevelDeaths, rec.TotalDeaths = levels, total
			}
		}
	case u.FullRun:
		rec.LevelDeaths, rec.TotalDeaths = runDeaths(u)
	default:
		rec.LevelDeaths[u.Level] = u.Deaths
		rec.TotalDeaths = sum(rec.LevelDeaths)
	}

	if u.Complete && !rec.Completed {
		rec.Completed = true
		rec.CompletedAt = now
		if !u.CompletedAt.IsZero() {
			rec.CompletedAt = u.CompletedAt.UTC()
		}
	}
	rec.UpdatedAt = now
	return rec, nil
}

func runDeaths(u Update) (map[int]int, int) {
	if len(u.LevelDeaths) == 0 {
		return map[int]int{}, u.ReportedTotal
	}
	levels := maps.Clone(u.LevelDeaths)
	return levels, sum(levels)
}

func sum(m map[int]int) int {
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

// compare orders records by total deaths, then completion time, then session
// id so equal records still rank deterministically.
func compare(a, b Record) int {
	if c := cmp.Compare(a.TotalDeaths, b.TotalDeaths); c != 0 {
		return c
	}
	if c := a.CompletedAt.Compare(b.CompletedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.SessionID, b.SessionID)
}

func sortRecords(records []Record) {
	slices.SortStableFunc(records, compare)
}

func ranked(r Record) bool {
	return r.Completed && r.PlayerName != ""
}

// Rank returns the best limit completed, named records with 1-based ranks.
func Rank(records []Record, limit int) []Entry {
	eligible := make([]Record, 0, len(records))
	for _, r := range records {
		if ranked(r) {
			eligible = append(eligible, r)
		}
	}
	sortRecords(eligible)
	if limit >= 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}

	entries := make([]Entry, len(eligible))
	for i, r := range eligible {
		entries[i] = Entry{
			Rank:                  i + 1,
			PlayerName:            r.PlayerName,
			TotalDeaths:           r.TotalDeaths,
			LevelDeaths:           r.LevelDeaths,
			CompletedAt:           r.CompletedAt,
			CompletionTimeMinutes: completionMinutes(r),
		}
	}
	return entries
}

func completionMinutes(r Record) *int {
	if r.CompletedAt.IsZero() || r.CreatedAt.IsZero() || r.CompletedAt.Before(r.CreatedAt) {
		return nil
	}
	m := int(math.Round(r.CompletedAt.Sub(r.CreatedAt).Minutes()))
	return &m
}

// Summarize averages per-level deaths over completed records. Levels no
// completed record reports are omitted.
func Summarize(records []Record) map[int]LevelDeathStat {
	totals := map[int]int{}
	counts := map[int]int{}
	for _, r := range records {
		if !r.Completed {
			continue
		}
		for level, deaths := range r.LevelDeaths {
			if !counters.ValidLevel(level) {
				continue
			}
			totals[level] += deaths
			counts[level]++
		}
	}

	out := make(map[int]LevelDeathStat, len(counts))
	for level, n := range counts {
		out[level] = LevelDeathStat{
			AverageDeaths: counters.Round1(float64(totals[level]) / float64(n)),
			PlayerCount:   n,
		}
	}
	return out
}
