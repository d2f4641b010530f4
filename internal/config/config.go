package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/campday/cornerquest/internal/corners"
)

type Config struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel       slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	DBDriver       string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath         string        `env:"DB_PATH" envDefault:"data/cornerquest.db"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisURL       string        `env:"REDIS_URL"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"12h"`
	CatalogFile    string        `env:"CATALOG_FILE"`
	StaticDir      string        `env:"STATIC_DIR"`
	ScorerCodeHash string        `env:"SCORER_CODE_HASH"`
	MetricsEnabled bool          `env:"METRICS_ENABLED" envDefault:"true"`
	Score          Score         `envPrefix:"SCORE_"`
}

type Score struct {
	Win      int `env:"WIN" envDefault:"40"`
	Draw     int `env:"DRAW" envDefault:"30"`
	Lose     int `env:"LOSE" envDefault:"10"`
	BonusMax int `env:"BONUS_MAX" envDefault:"5"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Policy() corners.ScorePolicy {
	return corners.ScorePolicy{
		Win:      c.Score.Win,
		Draw:     c.Score.Draw,
		Lose:     c.Score.Lose,
		BonusMax: c.Score.BonusMax,
	}
}

// DSN returns the data source for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("SCORE_*: %w", err)
	}
	return nil
}
