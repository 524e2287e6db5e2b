// Package sqlite implements the account repository on SQLite.
//
// WHY SQLITE?
// The store holds one small table of account rows; an embedded database in
// the binary's own file keeps deployment to a single process with no
// external service. modernc.org/sqlite is a pure-Go translation of SQLite,
// so the binary cross-compiles without a C toolchain.
//
// The uniqueness constraints on github_id and discord_id are what make
// reconciliation safe under concurrent callbacks: two racing creates for the
// same external ID serialize on the index, and the loser surfaces a
// conflict that the repository retries as a lookup.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql at init time.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements repository.AccountRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows a single writer, and database/sql would otherwise hand
	// transactions to different pooled connections and surface SQLITE_BUSY.
	// One connection serializes them instead. This also keeps ":memory:"
	// usable in tests — every new connection to ":memory:" is a separate
	// empty database.
	conn.SetMaxOpenConns(1)

	// Force an immediate connection so a bad path surfaces here rather than
	// on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a reconciliation transaction writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

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

// Close closes the connection pool. Defer it wherever New is called.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent,
// so restarting against an existing database is safe.
//
// The provider columns are nullable as a group: either all of a provider's
// columns are set or none are. UNIQUE on the external-id columns enforces
// "at most one account owns a (provider, externalId) pair" — SQLite permits
// any number of NULLs in a UNIQUE column, so accounts without that provider
// don't collide.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id                 TEXT PRIMARY KEY,
			github_id          TEXT UNIQUE,
			github_username    TEXT,
			github_avatar_url  TEXT,
			github_created_at  DATETIME,
			discord_id         TEXT UNIQUE,
			discord_username   TEXT,
			discord_avatar_url TEXT,
			discord_created_at DATETIME,
			wallet_address     TEXT,
			created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite exposes no sentinel for this, so we match the message
// SQLite has emitted verbatim since 3.8 ("UNIQUE constraint failed: ...").
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
