package db

import (
	"context"
	"fmt"
	"time"
)

type TotalRow struct {
	Key       string
	Value     int64
	UpdatedAt time.Time
}

// AddTotal adds delta to a global counter in one insert-or-accumulate statement.
func (q queries) AddTotal(ctx context.Context, key string, delta int64, at time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO game_totals (stat_key, stat_value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (stat_key) DO UPDATE
		SET stat_value = game_totals.stat_value + excluded.stat_value,
		    updated_at = excluded.updated_at
	`, key, delta, toMillis(at))
	if err != nil {
		return fmt.Errorf("adding to total %s: %w", key, err)
	}
	return nil
}

// SetTotal overwrites a global counter.
func (q queries) SetTotal(ctx context.Context, key string, value int64, at time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO game_totals (stat_key, stat_value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (stat_key) DO UPDATE
		SET stat_value = excluded.stat_value,
		    updated_at = excluded.updated_at
	`, key, value, toMillis(at))
	if err != nil {
		return fmt.Errorf("setting total %s: %w", key, err)
	}
	return nil
}

func (q queries) ListTotals(ctx context.Context) ([]TotalRow, error) {
	rows, err := q.Query(ctx, `SELECT stat_key, stat_value, updated_at FROM game_totals`)
	if err != nil {
		return nil, fmt.Errorf("listing totals: %w", err)
	}
	defer rows.Close()

	var totals []TotalRow
	for rows.Next() {
		var t TotalRow
		var updated int64
		if err := rows.Scan(&t.Key, &t.Value, &updated); err != nil {
			return nil, fmt.Errorf("scanning total: %w", err)
		}
		t.UpdatedAt = fromMillis(updated)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing totals: %w", err)
	}
	return totals, nil
}

// ClearCounters removes every total and daily rollup row. The event log is kept.
func (q queries) ClearCounters(ctx context.Context) error {
	if _, err := q.Exec(ctx, `DELETE FROM game_totals`); err != nil {
		return fmt.Errorf("clearing totals: %w", err)
	}
	if _, err := q.Exec(ctx, `DELETE FROM daily_stats`); err != nil {
		return fmt.Errorf("clearing daily stats: %w", err)
	}
	return nil
}
