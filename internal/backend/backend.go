// Package backend holds the two substitutable persistence strategies for the
// counter aggregate: a single JSON snapshot file and a relational store.
package backend

import (
	"context"
	"errors"

	"gamestats/internal/counters"
	"gamestats/internal/session"
)

// ErrUnavailable marks any failure of a backend that should make the caller
// fall back to another backend instead of failing the operation.
var ErrUnavailable = errors.New("backend unavailable")

type Name string

const (
	NameFile       Name = "file"
	NameRelational Name = "relational"
)

// Backend stores the counter aggregate and the session/event logs.
type Backend interface {
	Name() Name
	// Load returns the complete aggregate or an error; never a partial one.
	Load(ctx context.Context) (*counters.Aggregate, error)
	// Save persists agg as the new absolute state.
	Save(ctx context.Context, agg *counters.Aggregate) error
	// Apply records ev and folds it into the stored counters, returning the
	// aggregate as it stands afterwards.
	Apply(ctx context.Context, ev counters.Event) (*counters.Aggregate, error)
	// RecordEvent appends ev to the event log without touching counters.
	RecordEvent(ctx context.Context, ev counters.Event) error
	RecordSession(ctx context.Context, rec session.Record) error
	// Reset zeroes the counters. Append-only logs are kept.
	Reset(ctx context.Context) error
}
