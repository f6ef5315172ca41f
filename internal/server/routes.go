package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"reflect"
	"strings"
	"syscall"
	"time"

	"gamestats/internal/config"
	"gamestats/internal/live"
	"gamestats/internal/logger"
	"gamestats/internal/metrics"
	"gamestats/internal/stats"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP handlers' collaborators.
type Server struct {
	Stats    *stats.Service
	Hub      *live.Hub
	validate *validator.Validate
}

func New(svc *stats.Service, hub *live.Hub) *Server {
	v := validator.New()
	// Report JSON field names in validation messages.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{Stats: svc, Hub: hub, validate: v}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/stats", func(r chi.Router) {
			r.Post("/new-player", s.handleNewPlayer)
			r.Post("/game-start", s.handleGameStart)
			r.Post("/level-attempt", s.handleLevelAttempt)
			r.Post("/level-complete", s.handleLevelComplete)
			r.Post("/key-collected", s.handleKeyCollected)
			r.Post("/ceo-promotion", s.handleCEOPromotion)
			r.Post("/player-record", s.handlePlayerRecord)
			r.Post("/game-complete", s.handleGameComplete)
		})
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/leaderboard/live", s.handleLeaderboardLive)
		r.Get("/leaderboard/events", s.handleLeaderboardEvents)
		r.Route("/admin", func(r chi.Router) {
			r.Get("/stats", s.handleAdminStats)
			r.Post("/reset", s.handleAdminReset)
		})
	})
	return r
}

// Run loads configuration, opens storage and serves HTTP until SIGINT or
// SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "gamestats",
		Environment: cfg.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := live.NewHub()
	svc := stats.Open(ctx, cfg, hub)
	defer svc.Close()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           New(svc, hub).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "storage", svc.Mode(), "state", svc.State())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
