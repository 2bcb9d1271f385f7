// Package sqlite implements the repository interfaces on SQLite.
//
// The driver is modernc.org/sqlite — a pure Go translation of SQLite, so
// builds need no C toolchain and tests can run against ":memory:". The
// schema enforces what the domain promises: a unique (group_id, user_id)
// index on memberships, a unique invitation token, and cascade deletes from
// groups and users down to memberships, invitations and step entries.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and hands out the per-entity
// repositories, which all share the pool.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for a throwaway database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pool connection to ":memory:" opens its own private database,
	// so an in-memory database must be pinned to a single connection.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write transaction is open, which a web
	// server needs. Foreign keys are off by default in SQLite and all our
	// cascade rules depend on them.
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

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Users() *UserDB             { return &UserDB{conn: db.conn} }
func (db *DB) Groups() *GroupDB           { return &GroupDB{conn: db.conn} }
func (db *DB) Memberships() *MembershipDB { return &MembershipDB{conn: db.conn} }
func (db *DB) Invitations() *InvitationDB { return &InvitationDB{conn: db.conn} }
func (db *DB) StepEntries() *StepEntryDB  { return &StepEntryDB{conn: db.conn} }

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			created_at   DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS groups (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			owner_id   TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_groups_name ON groups(name);

		CREATE TABLE IF NOT EXISTS memberships (
			id        TEXT PRIMARY KEY,
			group_id  TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role      TEXT NOT NULL CHECK (role IN ('member', 'owner')),
			joined_at DATETIME NOT NULL,
			UNIQUE (group_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS invitations (
			id             TEXT PRIMARY KEY,
			group_id       TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			token          TEXT NOT NULL UNIQUE,
			created_by_id  TEXT NOT NULL REFERENCES users(id),
			accepted_by_id TEXT REFERENCES users(id),
			created_at     DATETIME NOT NULL,
			expires_at     DATETIME NOT NULL,
			used_at        DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_invitations_group ON invitations(group_id);

		CREATE TABLE IF NOT EXISTS step_entries (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date       TEXT NOT NULL,
			steps      INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_step_entries_user_date ON step_entries(user_id, date);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. Repositories translate those into apperror.ErrConflict so the
// service layer never sees driver types.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
