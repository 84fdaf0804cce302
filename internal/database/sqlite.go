package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sellers (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	contact_handle TEXT NOT NULL,
	specialty TEXT NOT NULL DEFAULT 'general',
	status TEXT NOT NULL DEFAULT 'online',
	active INTEGER NOT NULL DEFAULT 1,
	max_clients INTEGER NOT NULL DEFAULT 10 CHECK (max_clients >= 1),
	current_clients INTEGER NOT NULL DEFAULT 0 CHECK (current_clients >= 0),
	rating REAL NOT NULL DEFAULT 0,
	work_start TEXT,
	work_end TEXT,
	days_off TEXT,
	notification_interval INTEGER NOT NULL DEFAULT 30,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	seller_id TEXT NOT NULL,
	status TEXT NOT NULL,
	assigned_at TEXT NOT NULL,
	completed_at TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_one_active
	ON assignments(conversation_id) WHERE status = 'active';

CREATE INDEX IF NOT EXISTS idx_assignments_seller ON assignments(seller_id, status);

CREATE TABLE IF NOT EXISTS operators (
	email TEXT PRIMARY KEY,
	operator_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// SQLiteSchema returns the DDL applied by OpenSQLite.
func SQLiteSchema() string {
	return sqliteSchema
}

// OpenSQLite opens path and applies the schema. A single connection is kept so that
// ":memory:" databases are shared by every caller.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn += "?_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}
