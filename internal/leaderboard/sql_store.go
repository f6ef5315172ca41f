package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"gamestats/internal/backend"
	"gamestats/internal/counters"
	"gamestats/internal/db"
)

// SQLStore keeps records in player_records with one player_level_deaths row
// per reported level.
type SQLStore struct {
	db *db.DB
}

func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: leaderboard %s: %w", backend.ErrUnavailable, op, err)
}

func (s *SQLStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	row, err := s.db.GetPlayerRecord(ctx, sessionID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	rec := fromRow(*row)
	return &rec, nil
}

func (s *SQLStore) Put(ctx context.Context, rec Record) error {
	err := s.db.InTx(ctx, func(tx *db.Tx) error {
		return tx.SavePlayerRecord(ctx, db.PlayerRow{
			SessionID:   rec.SessionID,
			PlayerName:  rec.PlayerName,
			TotalDeaths: rec.TotalDeaths,
			Completed:   rec.Completed,
			CompletedAt: rec.CompletedAt,
			CreatedAt:   rec.CreatedAt,
			UpdatedAt:   rec.UpdatedAt,
			LevelDeaths: rec.LevelDeaths,
		})
	})
	if err != nil {
		return unavailable("put", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.ListCompletedPlayers(ctx, limit)
	if err != nil {
		return nil, unavailable("list", err)
	}
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = fromRow(row)
	}
	return records, nil
}

func (s *SQLStore) LevelDeathSummary(ctx context.Context) (map[int]LevelDeathStat, error) {
	rows, err := s.db.LevelDeathAverages(ctx)
	if err != nil {
		return nil, unavailable("level summary", err)
	}
	out := make(map[int]LevelDeathStat, len(rows))
	for _, r := range rows {
		out[r.Level] = LevelDeathStat{AverageDeaths: counters.Round1(r.AverageDeaths), PlayerCount: r.PlayerCount}
	}
	return out, nil
}

func fromRow(row db.PlayerRow) Record {
	levels := row.LevelDeaths
	if levels == nil {
		levels = map[int]int{}
	}
	return Record{
		SessionID:   row.SessionID,
		PlayerName:  row.PlayerName,
		LevelDeaths: levels,
		TotalDeaths: row.TotalDeaths,
		Completed:   row.Completed,
		CompletedAt: row.CompletedAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
