package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"3000"`
	DatabaseURL string `env:"DATABASE_URL"`
	AdminKey    string `env:"ADMIN_KEY"`

	DataDir         string `env:"DATA_DIR" envDefault:"data"`
	StatsFile       string `env:"STATS_FILE" envDefault:"server_stats.json"`
	LeaderboardFile string `env:"LEADERBOARD_FILE" envDefault:"leaderboard.json"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// BackendTimeout bounds every single backend call; there are no retries.
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"3s"`

	LeaderboardCacheTTL     time.Duration `env:"LEADERBOARD_CACHE_TTL" envDefault:"5s"`
	LeaderboardCacheSize    int           `env:"LEADERBOARD_CACHE_SIZE" envDefault:"32"`
	DefaultLeaderboardLimit int           `env:"DEFAULT_LEADERBOARD_LIMIT" envDefault:"10"`
	MaxLeaderboardLimit     int           `env:"MAX_LEADERBOARD_LIMIT" envDefault:"100"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.DefaultLeaderboardLimit <= 0 {
		return Config{}, fmt.Errorf("DEFAULT_LEADERBOARD_LIMIT must be positive, got %d", cfg.DefaultLeaderboardLimit)
	}
	if cfg.MaxLeaderboardLimit < cfg.DefaultLeaderboardLimit {
		cfg.MaxLeaderboardLimit = cfg.DefaultLeaderboardLimit
	}
	return cfg, nil
}

// StatsPath is the counter snapshot location.
func (c Config) StatsPath() string {
	return c.inDataDir(c.StatsFile)
}

// LeaderboardPath is the ranked leaderboard document location.
func (c Config) LeaderboardPath() string {
	return c.inDataDir(c.LeaderboardFile)
}

func (c Config) inDataDir(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}
