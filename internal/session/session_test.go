package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderFunc func(ctx context.Context, rec Record) error

func (f recorderFunc) RecordSession(ctx context.Context, rec Record) error { return f(ctx, rec) }

func TestNewID_TimeOrderedAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, err := NewID()
		require.NoError(t, err)
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestRegistry_OpenFillsDefaults(t *testing.T) {
	r := NewRegistry()
	fixed := time.Date(2026, 10, 17, 8, 0, 0, 0, time.FixedZone("x", 3600))
	r.now = func() time.Time { return fixed }

	rec, err := r.Open(Meta{UserAgent: "Firefox", Language: "zh-CN"})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Firefox", rec.Meta.UserAgent)
	assert.Equal(t, "zh-CN", rec.Meta.Language)
	assert.Equal(t, "direct", rec.Meta.Referrer)
	assert.Equal(t, "unknown", rec.Meta.ScreenSize)
	assert.Equal(t, "unknown", rec.Meta.IPAddress)
	assert.Equal(t, fixed.UTC(), rec.CreatedAt)
}

func TestRegistry_RegisterHandsRecordToRecorder(t *testing.T) {
	var got Record
	rec := recorderFunc(func(_ context.Context, r Record) error {
		got = r
		return nil
	})

	s, err := NewRegistry().Register(context.Background(), rec, Meta{})
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestRegistry_RegisterReturnsRecordOnRecorderError(t *testing.T) {
	boom := errors.New("boom")
	rec := recorderFunc(func(context.Context, Record) error { return boom })

	s, err := NewRegistry().Register(context.Background(), rec, Meta{})
	assert.ErrorIs(t, err, boom)
	assert.NotEmpty(t, s.ID)
}
