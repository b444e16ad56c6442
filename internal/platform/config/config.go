package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	Server   Server
	GLEIF    GLEIF
	Database Database
	Redis    RedisConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string `env:"BONDS_ADDR" envDefault:":8080"`
	AdminToken string `env:"BONDS_ADMIN_TOKEN"`
	PageSize   int    `env:"BONDS_PAGE_SIZE" envDefault:"100"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// GLEIF configures the LEI directory client.
type GLEIF struct {
	BaseURL string        `env:"GLEIF_BASE_URL" envDefault:"https://leilookup.gleif.org/api/v2/"`
	Timeout time.Duration `env:"GLEIF_TIMEOUT" envDefault:"60s"`
}

// Database configures PostgreSQL. An empty URL selects in-memory stores.
type Database struct {
	URL         string `env:"DATABASE_URL"`
	MaxConns    int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	ApplySchema bool   `env:"DATABASE_APPLY_SCHEMA" envDefault:"true"`
}

// RedisConfig configures the optional Redis token store. An empty URL
// disables Redis.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Load reads an optional .env file, then the process environment, and
// validates the result.
func Load() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromMap parses configuration from the given variables instead of the
// process environment.
func FromMap(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("BONDS_ADDR must not be empty"))
	}
	if c.Server.PageSize < 1 {
		errs = append(errs, fmt.Errorf("BONDS_PAGE_SIZE must be positive, got %d", c.Server.PageSize))
	}
	if _, err := c.Server.Level(); err != nil {
		errs = append(errs, err)
	}
	if u, err := url.Parse(c.GLEIF.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("GLEIF_BASE_URL must be an absolute URL, got %q", c.GLEIF.BaseURL))
	}
	if c.GLEIF.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("GLEIF_TIMEOUT must be positive, got %s", c.GLEIF.Timeout))
	}
	if c.Database.URL != "" && c.Database.MaxConns < 1 {
		errs = append(errs, fmt.Errorf("DATABASE_MAX_CONNS must be positive, got %d", c.Database.MaxConns))
	}
	return errors.Join(errs...)
}

// Level parses LOG_LEVEL.
func (s Server) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not a valid level", s.LogLevel)
	}
	return level, nil
}
