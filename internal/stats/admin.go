package stats

import (
	"context"

	"gamestats/internal/counters"
	"gamestats/internal/leaderboard"
)

// SummaryView is a counter aggregate read. Degraded is set when it was served
// from the file backend because the database failed.
type SummaryView struct {
	Stats    *counters.Aggregate
	Degraded bool
}

// AdminSummary combines the counters with the top of the leaderboard.
type AdminSummary struct {
	*counters.Aggregate
	Leaderboard     []leaderboard.Entry                `json:"leaderboard"`
	LevelDeathStats map[int]leaderboard.LevelDeathStat `json:"levelDeathStats"`
	Degraded        bool                               `json:"degraded,omitempty"`
}

// GetSummary loads the counter aggregate from the active backend.
func (s *Service) GetSummary(ctx context.Context) (SummaryView, error) {
	if s.rel != nil {
		cctx, cancel := s.call(ctx)
		agg, err := s.rel.Load(cctx)
		cancel()
		if err == nil {
			return SummaryView{Stats: agg}, nil
		}
		s.degraded(ctx, opLoad, err)
		agg, err = s.loadFile(ctx)
		return SummaryView{Stats: agg, Degraded: true}, err
	}
	agg, err := s.loadFile(ctx)
	return SummaryView{Stats: agg}, err
}

func (s *Service) loadFile(ctx context.Context) (*counters.Aggregate, error) {
	cctx, cancel := s.call(ctx)
	defer cancel()
	return s.file.Load(cctx)
}

// GetAdminSummary returns the full aggregate with the top leaderboard
// entries. A wrong key yields ErrUnauthorized and nothing else.
func (s *Service) GetAdminSummary(ctx context.Context, adminKey string) (*AdminSummary, error) {
	if !s.auth.IsAuthorized(adminKey) {
		return nil, ErrUnauthorized
	}
	summary, err := s.GetSummary(ctx)
	if err != nil {
		return nil, err
	}
	board, err := s.GetLeaderboard(ctx, AdminLeaderboardLimit)
	if err != nil {
		return nil, err
	}
	return &AdminSummary{
		Aggregate:       summary.Stats,
		Leaderboard:     board.Leaderboard,
		LevelDeathStats: board.LevelStats,
		Degraded:        summary.Degraded || board.Degraded,
	}, nil
}

// ResetAll zeroes the counters in every backend. confirm must equal
// ResetConfirmation. Session and event logs and the leaderboard are kept.
func (s *Service) ResetAll(ctx context.Context, adminKey, confirm string) error {
	if !s.auth.IsAuthorized(adminKey) {
		return ErrUnauthorized
	}
	if confirm != ResetConfirmation {
		return invalid("confirm", "must be "+ResetConfirmation)
	}

	if s.rel != nil {
		cctx, cancel := s.call(ctx)
		err := s.rel.Reset(cctx)
		cancel()
		if err != nil {
			s.degraded(ctx, opReset, err)
		}
	}
	cctx, cancel := s.call(ctx)
	defer cancel()
	if err := s.file.Reset(cctx); err != nil {
		return err
	}
	s.cache.purge()
	return nil
}
