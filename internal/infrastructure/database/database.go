package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

const (
	dirPerm  = 0750
	filePerm = 0600

	pingTimeout = 5 * time.Second
)

// Config holds SQLite connection settings.
type Config struct {
	Path        string
	WALMode     bool
	BusyTimeout int // milliseconds
}

// DB wraps sql.DB with the database file location.
type DB struct {
	*sql.DB
	path string
}

// dsn builds the sqlite3 connection string. Foreign keys are always
// enforced; WAL and synchronous=NORMAL are applied together since
// NORMAL is only safe under WAL.
func dsn(cfg Config) string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.Itoa(cfg.BusyTimeout))
	q.Set("_foreign_keys", "on")
	if cfg.WALMode {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return fmt.Sprintf("file:%s?%s", cfg.Path, q.Encode())
}

// Open establishes the SQLite connection, creating the parent
// directory when missing and verifying the database responds.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection avoids SQLITE_BUSY between writers; the
	// busy timeout covers the rare reader contention that remains.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Tighten permissions on the file sqlite just created.
	if err := os.Chmod(cfg.Path, filePerm); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("setting database permissions: %w", err)
	}

	return &DB{DB: conn, path: cfg.Path}, nil
}

// Close releases the underlying connection. Safe to call with a nil
// handle.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck verifies the database is reachable and can serve a
// trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

// Stats exposes connection pool statistics for diagnostics.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}
