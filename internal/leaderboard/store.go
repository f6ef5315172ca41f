package leaderboard

import (
	"context"
	"errors"
	"time"
)

// Store persists leaderboard records.
type Store interface {
	// Get returns ErrNotFound when the session has no record.
	Get(ctx context.Context, sessionID string) (*Record, error)
	Put(ctx context.Context, rec Record) error
	// List returns up to limit completed, named records in rank order.
	List(ctx context.Context, limit int) ([]Record, error)
	LevelDeathSummary(ctx context.Context) (map[int]LevelDeathStat, error)
}

// Upsert reads the session's record from s, applies u and writes the result.
func Upsert(ctx context.Context, s Store, u Update, now time.Time) (Record, error) {
	existing, err := s.Get(ctx, u.SessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}
	rec, err := Apply(existing, u, now)
	if err != nil {
		return Record{}, err
	}
	if err := s.Put(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Load builds the public board from s.
func Load(ctx context.Context, s Store, limit int) (Board, error) {
	records, err := s.List(ctx, limit)
	if err != nil {
		return Board{}, err
	}
	levels, err := s.LevelDeathSummary(ctx)
	if err != nil {
		return Board{}, err
	}
	return Board{Leaderboard: Rank(records, limit), LevelStats: levels}, nil
}
