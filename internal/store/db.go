// Package store provides the SQLite-backed local state: the last-sync cursor
// and a history of completed sync passes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// LastSyncKey is the meta key holding the date of the last successful sync.
const LastSyncKey = "leetSession_lastSync_v1"

// DB represents a SQLite database connection for local sync state.
type DB struct {
	path string
	conn *sql.DB
}

// Run is one fully successful sync pass.
type Run struct {
	ID         string
	Date       string // UTC calendar date, 2006-01-02
	StartedAt  time.Time
	FinishedAt time.Time
	Lists      int // managed lists visited
	Added      int // problems added across all lists
	Completed  int // sessions whose in-progress flag was cleared
}

// createMetaTableSQL defines the key/value table holding the cursor.
const createMetaTableSQL = `
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

// createRunsTableSQL defines the schema for the sync history.
const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS sync_runs (
    id TEXT PRIMARY KEY,
    sync_date TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    lists INTEGER DEFAULT 0,
    added INTEGER DEFAULT 0,
    completed INTEGER DEFAULT 0
);
`

// InitDB creates or opens a SQLite database at the given path and initializes the schema.
func InitDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer; one connection avoids "database is locked".
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec(createMetaTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create meta table: %w", err)
	}

	if _, err := conn.Exec(createRunsTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create sync_runs table: %w", err)
	}

	return &DB{
		path: path,
		conn: conn,
	}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// LastSync returns the date of the last successful sync, or "" if none was recorded.
func (db *DB) LastSync(ctx context.Context) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", LastSyncKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read last sync: %w", err)
	}
	return value, nil
}

// CompleteSync records a successful pass: the cursor moves to run.Date and the
// run is appended to the history, in one transaction.
func (db *DB) CompleteSync(ctx context.Context, run Run) error {
	if run.ID == "" || run.Date == "" {
		return fmt.Errorf("sync run needs an id and a date")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		LastSyncKey, run.Date, run.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to write last sync: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_runs (id, sync_date, started_at, finished_at, lists, added, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Date,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Lists, run.Added, run.Completed,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync: %w", err)
	}
	return nil
}

// ClearCursor forgets the last sync date so the next sync runs a full pass.
func (db *DB) ClearCursor(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM meta WHERE key = ?", LastSyncKey); err != nil {
		return fmt.Errorf("failed to clear last sync: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, sync_date, started_at, finished_at, lists, added, completed
		FROM sync_runs
		ORDER BY finished_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Date, &started, &finished, &r.Lists, &r.Added, &r.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}
	return runs, nil
}
