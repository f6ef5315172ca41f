package db

import (
	"context"
	"fmt"
	"time"
)

type SessionRow struct {
	ID         string
	UserAgent  string
	IPAddress  string
	Referrer   string
	Language   string
	ScreenSize string
	CreatedAt  time.Time
}

// InsertSession stores a session once; a repeated id is silently ignored.
func (q queries) InsertSession(ctx context.Context, s SessionRow) error {
	_, err := q.Exec(ctx, `
		INSERT INTO game_sessions (session_id, user_agent, ip_address, referrer, language, screen_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO NOTHING
	`, s.ID, s.UserAgent, s.IPAddress, s.Referrer, s.Language, s.ScreenSize, toMillis(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (q queries) CountSessions(ctx context.Context) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM game_sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return n, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
