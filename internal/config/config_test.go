package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, DriverPostgres, cfg.StorageDriver)
	require.Equal(t, CatalogStore, cfg.CatalogSource)
	require.Equal(t, 10*time.Minute, cfg.CatalogTTL)
	require.Equal(t, int64(10), cfg.UnitCost)
	require.Equal(t, "sb", cfg.SessionCookie)
	require.Equal(t, "authenticated", cfg.Auth.JWTAudience)
	require.Equal(t, "localhost", cfg.Postgres.Host)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", " SQLite ")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("UNIT_COST", "12")
	t.Setenv("CATALOG_SOURCE", "static")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, cfg.StorageDriver)
	require.Equal(t, "db.internal", cfg.Postgres.Host)
	require.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	require.Equal(t, int64(12), cfg.UnitCost)
	require.Equal(t, CatalogStatic, cfg.CatalogSource)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := Config{
		StorageDriver: DriverSQLite,
		CatalogSource: CatalogStatic,
		UnitCost:      10,
		Auth:          Auth{JWTSecret: "x"},
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.StorageDriver = "mysql"
	require.Error(t, bad.Validate())

	bad = base
	bad.CatalogSource = "remote"
	require.Error(t, bad.Validate())

	bad = base
	bad.UnitCost = 0
	require.Error(t, bad.Validate())

	bad = base
	bad.Auth.JWTSecret = "  "
	require.Error(t, bad.Validate())
}

func TestPostgresDSNAndURL(t *testing.T) {
	p := Postgres{Host: "h", Port: "5432", User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	require.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", p.DSN())
	require.Equal(t, "pgx5://u:p@h:5432/d?sslmode=disable", p.URL("pgx5"))
}

func TestSlogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, Config{LogLevel: "debug"}.SlogLevel())
	require.Equal(t, slog.LevelInfo, Config{LogLevel: "nonsense"}.SlogLevel())
}
