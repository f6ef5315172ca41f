package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"

	"gamestats/internal/backend"
	"gamestats/internal/counters"
	"gamestats/internal/logger"
)

// FileStore keeps every record in one JSON array, sorted in rank order. Like
// the counter snapshot it is a load-modify-save document and assumes a single
// writer per session.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// all never fails: a missing document is empty and a corrupt one is logged
// and treated as empty.
func (s *FileStore) all(ctx context.Context) []Record {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	log := logger.Component(ctx, "leaderboard")
	if err != nil {
		log.Warn("cannot read leaderboard, using empty board", "path", s.path, "error", err)
		return nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn("corrupt leaderboard, using empty board", "path", s.path, "error", err)
		return nil
	}
	for i := range records {
		maps.DeleteFunc(records[i].LevelDeaths, func(level, deaths int) bool {
			return !counters.ValidLevel(level) || deaths < 0
		})
	}
	return records
}

func (s *FileStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	for _, r := range s.all(ctx) {
		if r.SessionID == sessionID {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) Put(ctx context.Context, rec Record) error {
	records := s.all(ctx)
	replaced := false
	for i := range records {
		if records[i].SessionID == rec.SessionID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	sortRecords(records)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding leaderboard: %w", err)
	}
	if err := backend.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("saving leaderboard: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, limit int) ([]Record, error) {
	var out []Record
	for _, r := range s.all(ctx) {
		if ranked(r) {
			out = append(out, r)
		}
	}
	sortRecords(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FileStore) LevelDeathSummary(ctx context.Context) (map[int]LevelDeathStat, error) {
	return Summarize(s.all(ctx)), nil
}
