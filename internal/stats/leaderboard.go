package stats

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gamestats/internal/backend"
	"gamestats/internal/counters"
	"gamestats/internal/leaderboard"
	"gamestats/internal/logger"
	"gamestats/internal/metrics"
)

// BoardView is a leaderboard read. Degraded is set when it was served from
// the file store because the database failed.
type BoardView struct {
	leaderboard.Board
	Degraded bool `json:"degraded,omitempty"`
}

// UpdatePlayerProgress records the current death count for one level of a
// session's run. An empty playerName keeps the stored one.
func (s *Service) UpdatePlayerProgress(ctx context.Context, sessionID, playerName string, level, deaths int, completed bool) (leaderboard.Record, error) {
	if err := requireSession(sessionID); err != nil {
		return leaderboard.Record{}, err
	}
	if err := requireLevel(level); err != nil {
		return leaderboard.Record{}, err
	}
	if err := requireNonNegative("deaths", deaths); err != nil {
		return leaderboard.Record{}, err
	}

	playerName = strings.TrimSpace(playerName)
	if utf8.RuneCountInString(playerName) > MaxPlayerNameLength {
		return leaderboard.Record{}, invalid("playerName", "is too long")
	}

	u := leaderboard.Progress(sessionID, level, deaths, completed)
	u.PlayerName = playerName
	rec, err := s.upsert(ctx, u)
	if err != nil {
		return leaderboard.Record{}, err
	}
	s.logEvent(ctx, counters.Event{
		SessionID: sessionID,
		Type:      counters.EventPlayerProgress,
		Level:     level,
		Payload:   map[string]any{"level": level, "deaths": deaths, "completed": completed},
	})
	return rec, nil
}

// GameCompletion is a finished run as reported by the client.
type GameCompletion struct {
	SessionID   string
	PlayerName  string
	TotalDeaths int
	LevelDeaths map[int]int
	CompletedAt time.Time
}

// RecordGameComplete stores a finished run on the leaderboard.
func (s *Service) RecordGameComplete(ctx context.Context, gc GameCompletion) (leaderboard.Record, error) {
	if err := requireSession(gc.SessionID); err != nil {
		return leaderboard.Record{}, err
	}
	name := strings.TrimSpace(gc.PlayerName)
	if name == "" {
		return leaderboard.Record{}, invalid("playerName", "is required")
	}
	if utf8.RuneCountInString(name) > MaxPlayerNameLength {
		return leaderboard.Record{}, invalid("playerName", "is too long")
	}
	if err := requireNonNegative("totalDeaths", gc.TotalDeaths); err != nil {
		return leaderboard.Record{}, err
	}
	for level, deaths := range gc.LevelDeaths {
		if err := requireLevel(level); err != nil {
			return leaderboard.Record{}, err
		}
		if err := requireNonNegative("levelDeaths", deaths); err != nil {
			return leaderboard.Record{}, err
		}
	}

	rec, err := s.upsert(ctx, leaderboard.Completion(gc.SessionID, name, gc.TotalDeaths, gc.LevelDeaths, gc.CompletedAt))
	if err != nil {
		return leaderboard.Record{}, err
	}
	s.logEvent(ctx, counters.Event{
		SessionID: gc.SessionID,
		Type:      counters.EventGameComplete,
		Payload:   map[string]any{"playerName": name, "totalDeaths": rec.TotalDeaths},
	})
	return rec, nil
}

// upsert writes through the active store with the same degrade and mirror
// rules as counter writes.
func (s *Service) upsert(ctx context.Context, u leaderboard.Update) (leaderboard.Record, error) {
	rec, err := s.upsertActive(ctx, u)
	if err != nil {
		return leaderboard.Record{}, err
	}
	s.cache.purge()
	if rec.Completed {
		s.publish(ctx)
	}
	return rec, nil
}

func (s *Service) upsertActive(ctx context.Context, u leaderboard.Update) (leaderboard.Record, error) {
	now := s.now()
	if s.relBoard != nil {
		cctx, cancel := s.call(ctx)
		rec, err := leaderboard.Upsert(cctx, s.relBoard, u, now)
		cancel()
		if err == nil {
			rec = s.keepFileCompletion(ctx, rec, u, now)
			s.mirrorRecord(ctx, rec)
			return rec, nil
		}
		if !errors.Is(err, backend.ErrUnavailable) {
			return leaderboard.Record{}, err
		}
		s.degraded(ctx, opLeaderboard, err)
	}

	cctx, cancel := s.call(ctx)
	defer cancel()
	rec, err := leaderboard.Upsert(cctx, s.fileBoard, u, now)
	if err != nil {
		return leaderboard.Record{}, err
	}
	return rec, nil
}

// keepFileCompletion stops a completion that only reached the file store,
// because the database failed at the time, from being overwritten by a later
// relational write of the still incomplete row. The update is re-applied to
// the completed copy and that copy is written back to the database.
func (s *Service) keepFileCompletion(ctx context.Context, rec leaderboard.Record, u leaderboard.Update, now time.Time) leaderboard.Record {
	if rec.Completed {
		return rec
	}
	cctx, cancel := s.call(ctx)
	prev, err := s.fileBoard.Get(cctx, rec.SessionID)
	cancel()
	if err != nil || !prev.Completed {
		return rec
	}
	merged, err := leaderboard.Apply(prev, u, now)
	if err != nil {
		return rec
	}

	cctx, cancel = s.call(ctx)
	defer cancel()
	if err := s.relBoard.Put(cctx, merged); err != nil {
		s.degraded(ctx, opLeaderboard, err)
	}
	return merged
}

func (s *Service) mirrorRecord(ctx context.Context, rec leaderboard.Record) {
	cctx, cancel := s.call(ctx)
	defer cancel()
	if err := s.fileBoard.Put(cctx, rec); err != nil {
		metrics.MirrorFailures.WithLabelValues(mirrorLeaderboard).Inc()
		logger.Component(ctx, "stats").Warn("mirroring leaderboard to file failed", "session_id", rec.SessionID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	view, err := s.GetLeaderboard(ctx, s.settings.DefaultLimit)
	if err != nil {
		logger.Component(ctx, "stats").Warn("cannot load leaderboard for live update", "error", err)
		return
	}
	s.notifier.LeaderboardChanged(view.Board)
}

// ClampLimit maps a requested leaderboard size onto the configured bounds.
func (s *Service) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.settings.DefaultLimit
	}
	return min(limit, s.settings.MaxLimit)
}

// GetLeaderboard returns the ranked board and per-level death stats.
func (s *Service) GetLeaderboard(ctx context.Context, limit int) (BoardView, error) {
	limit = s.ClampLimit(limit)
	if b, ok := s.cache.get(limit); ok {
		return BoardView{Board: b}, nil
	}
	gen := s.cache.generation()

	if s.relBoard != nil {
		cctx, cancel := s.call(ctx)
		b, err := leaderboard.Load(cctx, s.relBoard, limit)
		cancel()
		if err == nil {
			s.cache.add(limit, b, gen)
			return BoardView{Board: b}, nil
		}
		s.degraded(ctx, opLeaderboard, err)
		b, err = s.loadFileBoard(ctx, limit)
		return BoardView{Board: b, Degraded: true}, err
	}

	b, err := s.loadFileBoard(ctx, limit)
	if err != nil {
		return BoardView{}, err
	}
	s.cache.add(limit, b, gen)
	return BoardView{Board: b}, nil
}

func (s *Service) loadFileBoard(ctx context.Context, limit int) (leaderboard.Board, error) {
	cctx, cancel := s.call(ctx)
	defer cancel()
	return leaderboard.Load(cctx, s.fileBoard, limit)
}
