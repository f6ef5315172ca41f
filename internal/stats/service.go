// Package stats orchestrates the counter backends and leaderboard stores:
// it picks the storage state once at startup, degrades single calls to the
// file backend when the database fails and mirrors successful database
// writes to the files.
package stats

import (
	"context"
	"time"

	"gamestats/internal/backend"
	"gamestats/internal/config"
	"gamestats/internal/db"
	"gamestats/internal/leaderboard"
	"gamestats/internal/logger"
	"gamestats/internal/metrics"
	"gamestats/internal/session"
)

// Notifier is told about leaderboard changes, typically to push them to
// connected clients.
type Notifier interface {
	LeaderboardChanged(board leaderboard.Board)
}

type Settings struct {
	// Timeout bounds each backend call. Zero means no bound.
	Timeout      time.Duration
	CacheSize    int
	CacheTTL     time.Duration
	DefaultLimit int
	MaxLimit     int
}

// Deps are the collaborators of a Service. Relational and RelationalBoard are
// nil when no database is in use.
type Deps struct {
	File            *backend.File
	FileBoard       *leaderboard.FileStore
	Relational      backend.Backend
	RelationalBoard leaderboard.Store
	Auth            Authorizer
	Notifier        Notifier
	Settings        Settings
}

type Service struct {
	state State

	file      *backend.File
	fileBoard *leaderboard.FileStore
	rel       backend.Backend
	relBoard  leaderboard.Store
	database  *db.DB

	auth     Authorizer
	notifier Notifier
	registry *session.Registry
	cache    *boardCache
	settings Settings
	now      func() time.Time
}

// New builds a service over already opened backends. The state is
// relational-active when d.Relational is set and file-only otherwise.
func New(d Deps) *Service {
	s := &Service{
		state:     StateFileOnly,
		file:      d.File,
		fileBoard: d.FileBoard,
		rel:       d.Relational,
		relBoard:  d.RelationalBoard,
		auth:      d.Auth,
		notifier:  d.Notifier,
		registry:  session.NewRegistry(),
		cache:     newBoardCache(d.Settings.CacheSize, d.Settings.CacheTTL),
		settings:  d.Settings,
		now:       time.Now,
	}
	if s.auth == nil {
		s.auth = NewKeyAuthorizer("")
	}
	if s.settings.DefaultLimit <= 0 {
		s.settings.DefaultLimit = 10
	}
	if s.settings.MaxLimit < s.settings.DefaultLimit {
		s.settings.MaxLimit = s.settings.DefaultLimit
	}
	if s.rel != nil {
		s.state = StateRelational
	}
	metrics.SetBackendState(string(s.state), allStates)
	return s
}

// Open builds the service from configuration. With a DATABASE_URL it probes
// the database once: a successful connect and migration makes the database
// the active backend, any failure settles on file-only. Neither outcome is
// revisited later.
func Open(ctx context.Context, cfg config.Config, notifier Notifier) *Service {
	log := logger.Component(ctx, "stats")
	d := Deps{
		File:      backend.NewFile(cfg.StatsPath()),
		FileBoard: leaderboard.NewFileStore(cfg.LeaderboardPath()),
		Auth:      NewKeyAuthorizer(cfg.AdminKey),
		Notifier:  notifier,
		Settings: Settings{
			Timeout:      cfg.BackendTimeout,
			CacheSize:    cfg.LeaderboardCacheSize,
			CacheTTL:     cfg.LeaderboardCacheTTL,
			DefaultLimit: cfg.DefaultLeaderboardLimit,
			MaxLimit:     cfg.MaxLeaderboardLimit,
		},
	}
	if cfg.AdminKey == "" {
		log.Warn("ADMIN_KEY not set, admin operations are disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Info("no DATABASE_URL, using file storage", "stats", cfg.StatsPath(), "leaderboard", cfg.LeaderboardPath())
		return New(d)
	}

	metrics.SetBackendState(string(StateProbing), allStates)
	database, err := probe(ctx, cfg)
	if err != nil {
		log.Warn("database unavailable, using file storage", "error", err)
		return New(d)
	}
	d.Relational = backend.NewRelational(database)
	d.RelationalBoard = leaderboard.NewSQLStore(database)
	s := New(d)
	s.database = database
	log.Info("using relational storage", "dialect", database.Dialect())
	return s
}

func probe(ctx context.Context, cfg config.Config) (*db.DB, error) {
	pctx, cancel := bounded(ctx, cfg.BackendTimeout)
	defer cancel()
	database, err := db.Connect(pctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	// Migrations may take longer than a single call budget.
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func (s *Service) State() State { return s.state }

// Mode is the name of the backend currently serving reads and writes.
func (s *Service) Mode() backend.Name {
	if s.rel != nil {
		return s.rel.Name()
	}
	return s.file.Name()
}

// Close releases the database connection, if any.
func (s *Service) Close() error {
	if s.database == nil {
		return nil
	}
	return s.database.Close()
}

func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (s *Service) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return bounded(ctx, s.settings.Timeout)
}
