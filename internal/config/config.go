// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	CatalogStore  = "store"
	CatalogStatic = "static"
)

// Config holds every setting the server and CLI read at startup.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StorageDriver string   `env:"STORAGE_DRIVER" envDefault:"postgres"`
	Postgres      Postgres `envPrefix:"DB_"`
	SQLitePath    string   `env:"SQLITE_PATH" envDefault:"meetings.db"`

	CatalogSource string        `env:"CATALOG_SOURCE" envDefault:"store"`
	CatalogTTL    time.Duration `env:"CATALOG_TTL" envDefault:"10m"`

	Auth Auth `envPrefix:"AUTH_"`

	SessionCookie  string `env:"SESSION_COOKIE" envDefault:"sb"`
	UnitCost       int64  `env:"UNIT_COST" envDefault:"10"`
	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
}

// Postgres holds PostgreSQL connection settings.
type Postgres struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	DBName   string `env:"NAME" envDefault:"meetings"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// DSN builds a libpq-compatible connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// URL builds a postgres URL with the given scheme, as golang-migrate expects.
func (p Postgres) URL(scheme string) string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s?sslmode=%s",
		scheme, p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// Auth configures session token verification.
type Auth struct {
	JWTSecret   string `env:"JWT_SECRET"`
	JWTIssuer   string `env:"JWT_ISSUER"`
	JWTAudience string `env:"JWT_AUDIENCE" envDefault:"authenticated"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	cfg.CatalogSource = strings.ToLower(strings.TrimSpace(cfg.CatalogSource))
	return cfg, nil
}

// Validate checks settings that env tags cannot express.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("STORAGE_DRIVER %q is not supported", c.StorageDriver)
	}
	switch c.CatalogSource {
	case CatalogStore, CatalogStatic:
	default:
		return fmt.Errorf("CATALOG_SOURCE %q is not supported", c.CatalogSource)
	}
	if c.UnitCost <= 0 {
		return errors.New("UNIT_COST must be positive")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
