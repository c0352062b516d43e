// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C
// compiler installed and cross-compilation becomes painful. modernc.org/sqlite
// is a pure Go translation of the SQLite C code — no C compiler needed, works
// everywhere Go works.
//
// STORAGE LAYOUT — DOCUMENTS IN COLUMNS:
// The data model is two document collections: users and languages, with
// languages embedding an ordered notes array and users embedding an ordered
// list of owned language IDs. We keep that document shape instead of
// normalizing notes into their own table: each embedded collection is one
// JSON-encoded TEXT column, and every mutation is a read-modify-write of the
// whole parent row. A single UPDATE is atomic in SQLite, which gives the
// parent document the exact atomicity unit the system is designed around —
// and concurrent writers to the same document race last-write-wins, which is
// the documented (accepted) behavior, not something this layer hides.
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The underscore import is "side-effect only": the sqlite package's init()
	// registers itself with database/sql as a driver named "sqlite". After
	// this import, sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements both repository interfaces.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/langnotes.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION, NOT A POOL:
	// SQLite allows exactly one writer at a time, so extra pooled connections
	// only buy "database is locked" errors. And with ":memory:" every pooled
	// connection would get its OWN empty database — capping at one makes the
	// in-memory database behave like the file-backed one.
	conn.SetMaxOpenConns(1)

	// Ping verifies the connection actually works. Without this, a bad path
	// or permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads WHILE a write is happening —
	// important for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (backwards compatibility).
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. Always defer this next to New().
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the two document collections.
//
// CREATE TABLE IF NOT EXISTS is idempotent — safe to run on every boot.
// For a schema this small, a migration framework would be more machinery
// than schema.
func (db *DB) migrate() error {
	// users: identity records. external_id holds the Google subject ID for
	// federated accounts or a generated "custom-id-…" value otherwise, so it
	// is always present and the UNIQUE constraint does the dedup work.
	// languages is the embedded ordered list of owned language IDs (JSON).
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			first_name      TEXT NOT NULL,
			last_name       TEXT NOT NULL,
			username        TEXT NOT NULL,
			email           TEXT NOT NULL UNIQUE,
			password_hash   TEXT NOT NULL DEFAULT '',
			external_id     TEXT NOT NULL UNIQUE,
			languages       TEXT NOT NULL DEFAULT '[]',
			is_admin        INTEGER NOT NULL DEFAULT 0,
			profile_picture TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// languages: the parent documents. notes is the embedded ordered note
	// array (JSON) — the whole column is rewritten on every note mutation.
	// created_by is not NOT NULL'd to a user: legacy rows may be unowned.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS languages (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			logo       TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			notes      TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_languages_created_by ON languages(created_by);
		CREATE INDEX IF NOT EXISTS idx_languages_name ON languages(name);
	`)
	if err != nil {
		return fmt.Errorf("creating languages table: %w", err)
	}

	return nil
}
