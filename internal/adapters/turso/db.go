package turso

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// Config selects the state database. A URL without a scheme is a local file path.
type Config struct {
	URL       string
	AuthToken string
}

// DSN returns the libsql data source name for the configuration.
func (c Config) DSN() (string, error) {
	u := strings.TrimSpace(c.URL)
	if u == "" {
		return "", fmt.Errorf("database URL is required")
	}

	switch {
	case strings.HasPrefix(u, "libsql://"), strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "http://"):
		if c.AuthToken == "" {
			return u, nil
		}
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		return u + sep + "authToken=" + c.AuthToken, nil
	case strings.HasPrefix(u, "file:"):
		return u, nil
	default:
		return "file:" + u, nil
	}
}

// IsLocal reports whether the configuration points at a local file.
func (c Config) IsLocal() bool {
	u := strings.TrimSpace(c.URL)
	return !strings.Contains(u, "://")
}

// NewDB opens and pings the state database, creating the parent directory of
// a local file when needed.
func NewDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	if cfg.IsLocal() {
		path := strings.TrimPrefix(strings.TrimSpace(cfg.URL), "file:")
		if i := strings.Index(path, "?"); i >= 0 {
			path = path[:i]
		}
		if path != "" && !strings.HasPrefix(path, ":memory:") {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if !cfg.IsLocal() {
		// Turso closes idle Hrana streams aggressively, so keep no idle connections.
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(0)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
