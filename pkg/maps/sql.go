package maps

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLLibrary is a SQLite-backed map index.
// Requires a table with schema (created by OpenSQLite):
//
//	CREATE TABLE kiai_maps (
//	    hash TEXT PRIMARY KEY,
//	    path TEXT NOT NULL,
//	    mode TEXT NOT NULL,
//	    title TEXT NOT NULL DEFAULT '',
//	    duration_ms REAL NOT NULL DEFAULT 0,
//	    added_at INTEGER NOT NULL
//	);
//	CREATE INDEX idx_kiai_maps_mode ON kiai_maps(mode);
type SQLLibrary struct {
	db        *sql.DB
	tableName string
	ownsDB    bool
	closed    atomic.Bool
}

// SQLOption configures SQLLibrary behavior.
type SQLOption func(*sqlConfig)

type sqlConfig struct {
	tableName string
}

// WithTableName sets the table name for the map index.
// Default: "kiai_maps".
func WithTableName(name string) SQLOption {
	return func(c *sqlConfig) {
		c.tableName = name
	}
}

// NewSQLLibrary wraps an existing database. The caller keeps ownership of db.
func NewSQLLibrary(ctx context.Context, db *sql.DB, opts ...SQLOption) (*SQLLibrary, error) {
	cfg := &sqlConfig{tableName: "kiai_maps"}
	for _, opt := range opts {
		opt(cfg)
	}

	l := &SQLLibrary{db: db, tableName: cfg.tableName}
	if err := l.migrate(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// OpenSQLite opens (creating if needed) a SQLite map index at path.
func OpenSQLite(ctx context.Context, path string, opts ...SQLOption) (*SQLLibrary, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("maps: index path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("maps: open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("maps: ping sqlite db: %w", err)
	}

	l, err := NewSQLLibrary(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	l.ownsDB = true
	return l, nil
}

func (l *SQLLibrary) migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			hash TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			mode TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			duration_ms REAL NOT NULL DEFAULT 0,
			added_at INTEGER NOT NULL
		)`, l.tableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_mode ON %s(mode)`, l.tableName, l.tableName),
	}
	for _, stmt := range stmts {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("maps: migrate: %w", err)
		}
	}
	return nil
}

// Lookup returns the map with the given hash.
func (l *SQLLibrary) Lookup(ctx context.Context, hash string) (Map, bool, error) {
	if l.closed.Load() {
		return Map{}, false, ErrLibraryClosed
	}

	query := fmt.Sprintf(`SELECT hash, path, mode, title, duration_ms FROM %s WHERE hash = ?`, l.tableName)
	var m Map
	err := l.db.QueryRowContext(ctx, query, normalizeHash(hash)).
		Scan(&m.Hash, &m.Path, &m.Mode, &m.Title, &m.DurationMS)
	if err == sql.ErrNoRows {
		return Map{}, false, nil
	}
	if err != nil {
		return Map{}, false, err
	}
	return m, true, nil
}

// Add records m, replacing any map with the same hash.
func (l *SQLLibrary) Add(ctx context.Context, m Map) error {
	if l.closed.Load() {
		return ErrLibraryClosed
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (hash, path, mode, title, duration_ms, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, l.tableName)
	_, err := l.db.ExecContext(ctx, query,
		normalizeHash(m.Hash), m.Path, m.Mode, m.Title, m.DurationMS, time.Now().UTC().UnixMilli())
	return err
}

// Remove deletes the map with the given hash.
func (l *SQLLibrary) Remove(ctx context.Context, hash string) error {
	if l.closed.Load() {
		return ErrLibraryClosed
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE hash = ?`, l.tableName)
	_, err := l.db.ExecContext(ctx, query, normalizeHash(hash))
	return err
}

// List returns every map ordered by hash, optionally filtered by mode.
func (l *SQLLibrary) List(ctx context.Context, mode string) ([]Map, error) {
	if l.closed.Load() {
		return nil, ErrLibraryClosed
	}

	query := fmt.Sprintf(`SELECT hash, path, mode, title, duration_ms FROM %s`, l.tableName)
	var args []any
	if mode != "" {
		query += ` WHERE mode = ?`
		args = append(args, mode)
	}
	query += ` ORDER BY hash`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Map
	for rows.Next() {
		var m Map
		if err := rows.Scan(&m.Hash, &m.Path, &m.Mode, &m.Title, &m.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close marks the library closed and releases the database if it was
// opened by OpenSQLite.
func (l *SQLLibrary) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	if l.ownsDB {
		return l.db.Close()
	}
	return nil
}
