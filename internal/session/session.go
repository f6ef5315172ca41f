// Package session issues the opaque per-visitor identifiers used to correlate
// gameplay events. Records are written once and never read back by the core.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Meta is what the client tells us about itself on first contact.
type Meta struct {
	UserAgent  string
	IPAddress  string
	Referrer   string
	Language   string
	ScreenSize string
}

type Record struct {
	ID        string
	Meta      Meta
	CreatedAt time.Time
}

// Recorder persists a session record. Inserting an id twice must be harmless.
type Recorder interface {
	RecordSession(ctx context.Context, rec Record) error
}

// NewID returns a time-ordered identifier: a millisecond timestamp prefix
// followed by random bits (UUIDv7).
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return id.String(), nil
}

type Registry struct {
	now func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// Open creates a fresh session record with defaults for missing metadata.
func (r *Registry) Open(meta Meta) (Record, error) {
	id, err := NewID()
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:        id,
		Meta:      withDefaults(meta),
		CreatedAt: r.now().UTC(),
	}, nil
}

// Register opens a record and hands it to rec.
func (r *Registry) Register(ctx context.Context, rec Recorder, meta Meta) (Record, error) {
	s, err := r.Open(meta)
	if err != nil {
		return Record{}, err
	}
	if err := rec.RecordSession(ctx, s); err != nil {
		return s, fmt.Errorf("recording session: %w", err)
	}
	return s, nil
}

func withDefaults(m Meta) Meta {
	if m.UserAgent == "" {
		m.UserAgent = "unknown"
	}
	if m.IPAddress == "" {
		m.IPAddress = "unknown"
	}
	if m.Referrer == "" {
		m.Referrer = "direct"
	}
	if m.Language == "" {
		m.Language = "unknown"
	}
	if m.ScreenSize == "" {
		m.ScreenSize = "unknown"
	}
	return m
}
