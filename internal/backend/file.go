package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gamestats/internal/counters"
	"gamestats/internal/logger"
	"gamestats/internal/session"
)

// File keeps the whole aggregate as one JSON document. Apply is a plain
// load-modify-save: two processes (or goroutines) applying at the same time
// can lose an increment. That is accepted for single-instance deployments.
type File struct {
	path string
	now  func() time.Time
}

func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

func (f *File) Name() Name { return NameFile }

func (f *File) Path() string { return f.path }

// Load never fails: a missing file yields the zero state and an unreadable or
// corrupt one is logged and replaced by the zero state.
func (f *File) Load(ctx context.Context) (*counters.Aggregate, error) {
	agg := counters.Default()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return agg, nil
	}
	log := logger.Component(ctx, "file")
	if err != nil {
		log.Warn("cannot read stats snapshot, using defaults", "path", f.path, "error", err)
		return agg, nil
	}
	if err := json.Unmarshal(data, agg); err != nil {
		log.Warn("corrupt stats snapshot, using defaults", "path", f.path, "error", err)
		return counters.Default(), nil
	}
	agg.Normalize()
	return agg, nil
}

// Save stamps LastUpdated and replaces the snapshot atomically.
func (f *File) Save(ctx context.Context, agg *counters.Aggregate) error {
	agg.LastUpdated = f.now().UTC()
	data, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats snapshot: %w", err)
	}
	if err := WriteFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("saving stats snapshot: %w", err)
	}
	return nil
}

func (f *File) Apply(ctx context.Context, ev counters.Event) (*counters.Aggregate, error) {
	if ev.At.IsZero() {
		ev.At = f.now()
	}
	agg, err := f.Load(ctx)
	if err != nil {
		return nil, err
	}
	agg.Apply(ev)
	if err := f.Save(ctx, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// RecordSession and RecordEvent are no-ops: the file layout has no logs.
func (f *File) RecordSession(context.Context, session.Record) error { return nil }

func (f *File) RecordEvent(context.Context, counters.Event) error { return nil }

func (f *File) Reset(ctx context.Context) error {
	return f.Save(ctx, counters.Default())
}

// WriteFileAtomic writes data to a temp file next to path, syncs it and renames
// it over path, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
