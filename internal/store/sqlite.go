package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB is the local SQLite database: the move journal and the persistent lead page cache.
type DB struct {
	sql *sql.DB
	now func() time.Time
}

// DefaultDBPath is <config dir>/leadboard.sqlite.
func DefaultDBPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "leadboard.sqlite"), nil
}

func Open(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL allows the TUI and a CLI command to share the file.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{sql: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS moves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lead_id TEXT NOT NULL,
			from_board_id TEXT NOT NULL,
			to_board_id TEXT NOT NULL,
			sort_order INTEGER NOT NULL,
			old_sort_order INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			error TEXT,
			at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_moves_lead ON moves(lead_id, at_unixms);`,
		`CREATE TABLE IF NOT EXISTS lead_pages (
			board_id TEXT NOT NULL,
			page INTEGER NOT NULL,
			size INTEGER NOT NULL,
			payload_json TEXT NOT NULL,
			expires_at_unixms INTEGER,
			PRIMARY KEY(board_id, page, size)
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}
