package db

import (
	"context"
	"fmt"
)

type DailyRow struct {
	Date          string
	Players       int
	Games         int
	Levels        int
	Keys          int
	CEOPromotions int
}

var dailyColumns = map[string]bool{
	"players":        true,
	"games":          true,
	"levels":         true,
	"keys":           true,
	"ceo_promotions": true,
}

// AddDaily adds delta to one column of the date's rollup, creating the row
// with delta as its initial value when absent. The column name is checked
// against a fixed set before it reaches the statement.
func (q queries) AddDaily(ctx context.Context, date, column string, delta int) error {
	if !dailyColumns[column] {
		return fmt.Errorf("unknown daily column %q", column)
	}
	query := fmt.Sprintf(`
		INSERT INTO daily_stats (stat_date, %[1]s)
		VALUES ($1, $2)
		ON CONFLICT (stat_date) DO UPDATE
		SET %[1]s = daily_stats.%[1]s + excluded.%[1]s
	`, column)
	if _, err := q.Exec(ctx, query, date, delta); err != nil {
		return fmt.Errorf("adding to daily %s: %w", column, err)
	}
	return nil
}

// PutDaily overwrites a date's rollup.
func (q queries) PutDaily(ctx context.Context, d DailyRow) error {
	_, err := q.Exec(ctx, `
		INSERT INTO daily_stats (stat_date, players, games, levels, keys, ceo_promotions)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stat_date) DO UPDATE
		SET players = excluded.players,
		    games = excluded.games,
		    levels = excluded.levels,
		    keys = excluded.keys,
		    ceo_promotions = excluded.ceo_promotions
	`, d.Date, d.Players, d.Games, d.Levels, d.Keys, d.CEOPromotions)
	if err != nil {
		return fmt.Errorf("putting daily stats: %w", err)
	}
	return nil
}

func (q queries) ListDaily(ctx context.Context) ([]DailyRow, error) {
	rows, err := q.Query(ctx, `
		SELECT stat_date, players, games, levels, keys, ceo_promotions
		FROM daily_stats
		ORDER BY stat_date
	`)
	if err != nil {
		return nil, fmt.Errorf("listing daily stats: %w", err)
	}
	defer rows.Close()

	var days []DailyRow
	for rows.Next() {
		var d DailyRow
		if err := rows.Scan(&d.Date, &d.Players, &d.Games, &d.Levels, &d.Keys, &d.CEOPromotions); err != nil {
			return nil, fmt.Errorf("scanning daily stats: %w", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing daily stats: %w", err)
	}
	return days, nil
}
