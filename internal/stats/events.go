package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gamestats/internal/backend"
	"gamestats/internal/counters"
	"gamestats/internal/logger"
	"gamestats/internal/metrics"
	"gamestats/internal/session"
)

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return invalid("sessionId", "is required")
	}
	return nil
}

func requireLevel(level int) error {
	if !counters.ValidLevel(level) {
		return invalid("level", fmt.Sprintf("must be between %d and %d", counters.MinLevel, counters.MaxLevel))
	}
	return nil
}

func requireNonNegative(field string, n int) error {
	if n < 0 {
		return invalid(field, "must not be negative")
	}
	return nil
}

// RecordNewPlayer issues a session id, stores the session record and counts
// the player.
func (s *Service) RecordNewPlayer(ctx context.Context, meta session.Meta) (string, error) {
	rec, err := s.registry.Register(ctx, s, meta)
	if err != nil && rec.ID == "" {
		return "", err
	}
	if err != nil {
		logger.Component(ctx, "stats").Warn("session record not stored", "session_id", rec.ID, "error", err)
	}
	if _, err := s.apply(ctx, counters.Event{SessionID: rec.ID, Type: counters.EventNewPlayer}); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// RecordSession stores rec in the active backend. A database failure falls
// back to the file backend, which keeps no session log.
func (s *Service) RecordSession(ctx context.Context, rec session.Record) error {
	if s.rel != nil {
		cctx, cancel := s.call(ctx)
		err := s.rel.RecordSession(cctx, rec)
		cancel()
		if err == nil {
			return nil
		}
		s.degraded(ctx, opSession, err)
	}
	return s.file.RecordSession(ctx, rec)
}

func (s *Service) RecordGameStart(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	_, err := s.apply(ctx, counters.Event{SessionID: sessionID, Type: counters.EventGameStart})
	return err
}

func (s *Service) RecordLevelAttempt(ctx context.Context, sessionID string, level, attemptCount int) error {
	if err := levelRequest(sessionID, level, attemptCount); err != nil {
		return err
	}
	_, err := s.apply(ctx, counters.Event{
		SessionID: sessionID,
		Type:      counters.EventLevelAttempt,
		Level:     level,
		Payload:   map[string]any{"level": level, "attemptCount": attemptCount},
	})
	return err
}

func (s *Service) RecordLevelComplete(ctx context.Context, sessionID string, level, attemptCount int) error {
	if err := levelRequest(sessionID, level, attemptCount); err != nil {
		return err
	}
	_, err := s.apply(ctx, counters.Event{
		SessionID: sessionID,
		Type:      counters.EventLevelComplete,
		Level:     level,
		Payload:   map[string]any{"level": level, "attemptCount": attemptCount},
	})
	return err
}

func levelRequest(sessionID string, level, attemptCount int) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if err := requireLevel(level); err != nil {
		return err
	}
	return requireNonNegative("attemptCount", attemptCount)
}

func (s *Service) RecordKeyCollected(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	_, err := s.apply(ctx, counters.Event{SessionID: sessionID, Type: counters.EventKeyCollected})
	return err
}

func (s *Service) RecordCEOPromotion(ctx context.Context, sessionID string) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	_, err := s.apply(ctx, counters.Event{SessionID: sessionID, Type: counters.EventCEOPromotion})
	return err
}

// apply stores ev through the active backend. A database failure degrades
// this call to the file backend; a database success is mirrored to the file.
func (s *Service) apply(ctx context.Context, ev counters.Event) (*counters.Aggregate, error) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	if s.rel != nil {
		cctx, cancel := s.call(ctx)
		agg, err := s.rel.Apply(cctx, ev)
		cancel()
		if err == nil {
			metrics.EventsRecorded.WithLabelValues(string(ev.Type), string(backend.NameRelational)).Inc()
			s.mirrorStats(ctx, agg)
			return agg, nil
		}
		if !errors.Is(err, backend.ErrUnavailable) {
			return nil, fmt.Errorf("recording %s: %w", ev.Type, err)
		}
		s.degraded(ctx, opApply, err)
	}

	cctx, cancel := s.call(ctx)
	defer cancel()
	agg, err := s.file.Apply(cctx, ev)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", ev.Type, err)
	}
	metrics.EventsRecorded.WithLabelValues(string(ev.Type), string(backend.NameFile)).Inc()
	return agg, nil
}

// logEvent appends ev to the event log without touching counters.
func (s *Service) logEvent(ctx context.Context, ev counters.Event) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	if s.rel == nil {
		return
	}
	cctx, cancel := s.call(ctx)
	defer cancel()
	if err := s.rel.RecordEvent(cctx, ev); err != nil {
		s.degraded(ctx, opEvent, err)
		return
	}
	metrics.EventsRecorded.WithLabelValues(string(ev.Type), string(backend.NameRelational)).Inc()
}

func (s *Service) mirrorStats(ctx context.Context, agg *counters.Aggregate) {
	cctx, cancel := s.call(ctx)
	defer cancel()
	if err := s.file.Save(cctx, agg.Clone()); err != nil {
		metrics.MirrorFailures.WithLabelValues(mirrorStats).Inc()
		logger.Component(ctx, "stats").Warn("mirroring stats to file failed", "error", err)
	}
}

func (s *Service) degraded(ctx context.Context, op string, err error) {
	metrics.BackendFallbacks.WithLabelValues(op).Inc()
	logger.Component(ctx, "stats").Warn("database call failed, using file storage for this call", "operation", op, "error", err)
}
