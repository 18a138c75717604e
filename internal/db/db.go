// Package db opens the SQL connection behind the location store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"

	"github.com/joeblew999/plat-iftar/internal/logging"
)

// Config holds database configuration.
type Config struct {
	Driver  string // duckdb, pgx or sqlite
	DSN     string // optional for the embedded drivers
	DataDir string
	DBName  string
}

// Open connects to the configured database and checks it is reachable.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	dsn, err := dsnFor(driver, cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	switch driver {
	case "duckdb", "sqlite":
		// single writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	case "pgx":
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
			logging.Warn().Err(err).Msg("sqlite tuning skipped")
		}
	}
	return db, nil
}

func dsnFor(driver string, cfg Config) (string, error) {
	name := cfg.DBName
	if name == "" {
		name = "iftar"
	}
	switch driver {
	case "duckdb", "sqlite":
		if cfg.DSN != "" {
			return cfg.DSN, nil
		}
		dir := filepath.Join(cfg.DataDir, driver)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create %s directory: %w", driver, err)
		}
		return filepath.Join(dir, name+"."+driver), nil
	case "pgx":
		if cfg.DSN == "" {
			return "", fmt.Errorf("pgx driver requires a DSN")
		}
		return cfg.DSN, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}
