package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type EventRow struct {
	SessionID string
	Type      string
	Level     int // zero stores NULL
	Payload   string
	CreatedAt time.Time
}

// InsertEvent appends one immutable event row.
func (q queries) InsertEvent(ctx context.Context, e EventRow) error {
	level := sql.NullInt64{Int64: int64(e.Level), Valid: e.Level != 0}
	payload := e.Payload
	if payload == "" {
		payload = "{}"
	}
	_, err := q.Exec(ctx, `
		INSERT INTO game_events (session_id, event_type, level, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.SessionID, e.Type, level, payload, toMillis(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// CountLevelEvents counts events of eventType per level, skipping everything
// logged before the most recent marker event of markerType.
func (q queries) CountLevelEvents(ctx context.Context, eventType, markerType string) (map[int]int, error) {
	rows, err := q.Query(ctx, `
		SELECT level, COUNT(*)
		FROM game_events
		WHERE event_type = $1
		  AND level IS NOT NULL
		  AND id > (SELECT COALESCE(MAX(id), 0) FROM game_events WHERE event_type = $2)
		GROUP BY level
	`, eventType, markerType)
	if err != nil {
		return nil, fmt.Errorf("counting %s events: %w", eventType, err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var level, n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("scanning %s count: %w", eventType, err)
		}
		counts[level] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting %s events: %w", eventType, err)
	}
	return counts, nil
}

func (q queries) CountEvents(ctx context.Context, eventType string) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM game_events WHERE event_type = $1`, eventType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s events: %w", eventType, err)
	}
	return n, nil
}

// LatestEventAt returns when the newest event was logged, or the zero time
// for an empty log.
func (q queries) LatestEventAt(ctx context.Context) (time.Time, error) {
	var ms sql.NullInt64
	if err := q.QueryRow(ctx, `SELECT MAX(created_at) FROM game_events`).Scan(&ms); err != nil {
		return time.Time{}, fmt.Errorf("reading latest event time: %w", err)
	}
	if !ms.Valid {
		return time.Time{}, nil
	}
	return fromMillis(ms.Int64), nil
}
