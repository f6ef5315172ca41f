package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gamestats/internal/counters"
	"gamestats/internal/db"
	"gamestats/internal/session"
)

// Relational keeps global counters in a key/value totals table, per-date
// rollups in daily rows and every event in an append-only log. Counter
// increments are single upsert statements so concurrent writers never lose
// updates. Level completion and attempt counts are derived from the event log.
type Relational struct {
	db  *db.DB
	now func() time.Time
}

func NewRelational(database *db.DB) *Relational {
	return &Relational{db: database, now: time.Now}
}

func (r *Relational) Name() Name { return NameRelational }

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func (r *Relational) Load(ctx context.Context) (*counters.Aggregate, error) {
	totals, err := r.db.ListTotals(ctx)
	if err != nil {
		return nil, unavailable("load", err)
	}
	days, err := r.db.ListDaily(ctx)
	if err != nil {
		return nil, unavailable("load", err)
	}
	completions, err := r.db.CountLevelEvents(ctx, string(counters.EventLevelComplete), string(counters.EventStatsReset))
	if err != nil {
		return nil, unavailable("load", err)
	}
	attempts, err := r.db.CountLevelEvents(ctx, string(counters.EventLevelAttempt), string(counters.EventStatsReset))
	if err != nil {
		return nil, unavailable("load", err)
	}
	latest, err := r.db.LatestEventAt(ctx)
	if err != nil {
		return nil, unavailable("load", err)
	}

	agg := counters.Default()
	agg.LastUpdated = latest
	for _, t := range totals {
		agg.AddTotal(counters.TotalField(t.Key), int(t.Value))
		if t.UpdatedAt.After(agg.LastUpdated) {
			agg.LastUpdated = t.UpdatedAt
		}
	}
	for _, d := range days {
		agg.DailyStats[d.Date] = counters.Daily{
			Players:       d.Players,
			Games:         d.Games,
			Levels:        d.Levels,
			Keys:          d.Keys,
			CEOPromotions: d.CEOPromotions,
		}
	}
	for level := counters.MinLevel; level <= counters.MaxLevel; level++ {
		agg.LevelStats[level] = completions[level]
		agg.LevelAttempts[level] = attempts[level]
		agg.RecomputeAverage(level)
	}
	return agg, nil
}

// Save overwrites the totals and daily rows with agg's values. Level counts are
// not written: they always come from the event log.
func (r *Relational) Save(ctx context.Context, agg *counters.Aggregate) error {
	at := r.now()
	err := r.db.InTx(ctx, func(tx *db.Tx) error {
		for _, field := range counters.TotalFields {
			if err := tx.SetTotal(ctx, string(field), int64(agg.Total(field)), at); err != nil {
				return err
			}
		}
		for date, d := range agg.DailyStats {
			row := db.DailyRow{Date: date, Players: d.Players, Games: d.Games, Levels: d.Levels, Keys: d.Keys, CEOPromotions: d.CEOPromotions}
			if err := tx.PutDaily(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("save", err)
	}
	agg.LastUpdated = at.UTC()
	return nil
}

// Apply logs ev and bumps its counters in one transaction, then reloads.
func (r *Relational) Apply(ctx context.Context, ev counters.Event) (*counters.Aggregate, error) {
	row, err := eventRow(ev, r.now())
	if err != nil {
		return nil, err
	}
	err = r.db.InTx(ctx, func(tx *db.Tx) error {
		if err := tx.InsertEvent(ctx, row); err != nil {
			return err
		}
		if isLevelEvent(ev.Type) && !counters.ValidLevel(ev.Level) {
			return nil
		}
		eff, ok := counters.EffectOf(ev.Type)
		if !ok {
			return nil
		}
		if err := tx.AddTotal(ctx, string(eff.Total), 1, row.CreatedAt); err != nil {
			return err
		}
		return tx.AddDaily(ctx, counters.DayOf(row.CreatedAt), string(eff.Daily), 1)
	})
	if err != nil {
		return nil, unavailable("apply "+string(ev.Type), err)
	}
	return r.Load(ctx)
}

// RecordEvent appends ev to the log without touching any counter.
func (r *Relational) RecordEvent(ctx context.Context, ev counters.Event) error {
	row, err := eventRow(ev, r.now())
	if err != nil {
		return err
	}
	if err := r.db.InsertEvent(ctx, row); err != nil {
		return unavailable("record event", err)
	}
	return nil
}

func (r *Relational) RecordSession(ctx context.Context, rec session.Record) error {
	err := r.db.InsertSession(ctx, db.SessionRow{
		ID:         rec.ID,
		UserAgent:  rec.Meta.UserAgent,
		IPAddress:  rec.Meta.IPAddress,
		Referrer:   rec.Meta.Referrer,
		Language:   rec.Meta.Language,
		ScreenSize: rec.Meta.ScreenSize,
		CreatedAt:  rec.CreatedAt,
	})
	if err != nil {
		return unavailable("record session", err)
	}
	return nil
}

// Reset clears totals and daily rows and logs a reset marker; level counts
// derived from the log start again after the marker.
func (r *Relational) Reset(ctx context.Context) error {
	at := r.now()
	err := r.db.InTx(ctx, func(tx *db.Tx) error {
		if err := tx.ClearCounters(ctx); err != nil {
			return err
		}
		return tx.InsertEvent(ctx, db.EventRow{Type: string(counters.EventStatsReset), Payload: "{}", CreatedAt: at})
	})
	if err != nil {
		return unavailable("reset", err)
	}
	return nil
}

func isLevelEvent(t counters.EventType) bool {
	return t == counters.EventLevelAttempt || t == counters.EventLevelComplete
}

func eventRow(ev counters.Event, now time.Time) (db.EventRow, error) {
	at := ev.At
	if at.IsZero() {
		at = now
	}
	payload := "{}"
	if len(ev.Payload) > 0 {
		b, err := json.Marshal(ev.Payload)
		if err != nil {
			return db.EventRow{}, fmt.Errorf("encoding %s payload: %w", ev.Type, err)
		}
		payload = string(b)
	}
	level := ev.Level
	if !counters.ValidLevel(level) {
		level = 0
	}
	return db.EventRow{SessionID: ev.SessionID, Type: string(ev.Type), Level: level, Payload: payload, CreatedAt: at}, nil
}
