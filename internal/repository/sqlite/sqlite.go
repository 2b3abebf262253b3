// Package sqlite implements the repository interfaces on SQLite.
//
// SQLite is embedded — a single file, no server process — which fits a
// single-binary deployment and makes tests trivial (":memory:" gives every
// test its own throwaway database). The modernc.org/sqlite driver is a pure
// Go translation of SQLite, so there is no CGo and cross-compilation stays
// painless.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/minjae-dev/study-planner-api/internal/repository"
)

// DB owns the sql.DB connection pool. Per-entity repositories (Users,
// OAuthAccounts, Subjects, StudySessions) share it; DB itself implements
// the stats interface for the health endpoints.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for an in-memory database in tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows a single writer, and the PRAGMAs below are per
	// connection — with a pool of one, they apply everywhere. This also
	// keeps ":memory:" working: every pooled connection would otherwise
	// get its own empty in-memory database.
	conn.SetMaxOpenConns(1)

	// Force an immediate connection so a bad path surfaces here, not on
	// the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed concurrently with a write — necessary for a
	// web server. Foreign keys are off by default in SQLite; the schema
	// relies on them.
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

// Close closes the connection pool, flushing the WAL.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this
// idempotent; a real migration tool can take over once the schema starts
// changing in production.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			email          TEXT NOT NULL UNIQUE,
			nickname       TEXT NOT NULL,
			display_name   TEXT NOT NULL DEFAULT '',
			profile_image  TEXT NOT NULL DEFAULT '',
			email_verified INTEGER NOT NULL DEFAULT 0,
			last_login_at  DATETIME,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// The UNIQUE(provider, provider_id) pair is load-bearing: it is the
	// sole defence against two concurrent first-logins creating duplicate
	// links for the same external identity (the resolver recovers from the
	// loser's conflict by re-reading).
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS oauth_accounts (
			id            TEXT PRIMARY KEY,
			provider      TEXT NOT NULL,
			provider_id   TEXT NOT NULL,
			provider_data TEXT NOT NULL DEFAULT '',
			user_id       TEXT NOT NULL REFERENCES users(id),
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(provider, provider_id)
		);
		CREATE INDEX IF NOT EXISTS idx_oauth_accounts_user_id ON oauth_accounts(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating oauth_accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS subjects (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			name       TEXT NOT NULL,
			color      TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_subjects_user_id ON subjects(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating subjects table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS study_sessions (
			id               TEXT PRIMARY KEY,
			subject_id       TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
			user_id          TEXT NOT NULL REFERENCES users(id),
			duration_minutes INTEGER NOT NULL,
			note             TEXT NOT NULL DEFAULT '',
			started_at       DATETIME NOT NULL,
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_study_sessions_subject_id ON study_sessions(subject_id);
	`)
	if err != nil {
		return fmt.Errorf("creating study_sessions table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. The driver surfaces these as plain errors with a stable message
// prefix, so a string check is the pragmatic test.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Per-entity accessors. Each returns a small struct sharing the same
// connection pool, so server.go hands each service exactly the interface
// it needs while the pool stays singular.

func (db *DB) Users() *UserDB                 { return &UserDB{conn: db.conn} }
func (db *DB) OAuthAccounts() *OAuthAccountDB { return &OAuthAccountDB{conn: db.conn} }
func (db *DB) Subjects() *SubjectDB           { return &SubjectDB{conn: db.conn} }
func (db *DB) StudySessions() *StudySessionDB { return &StudySessionDB{conn: db.conn} }

// compile-time checks that the sub-repositories implement their interfaces.
var (
	_ repository.UserRepository         = (*UserDB)(nil)
	_ repository.OAuthAccountRepository = (*OAuthAccountDB)(nil)
	_ repository.SubjectRepository      = (*SubjectDB)(nil)
	_ repository.StudySessionRepository = (*StudySessionDB)(nil)
	_ repository.StatsRepository        = (*DB)(nil)
)

// Ping verifies the database answers a trivial query. The health endpoints
// time this call to report storage latency.
func (db *DB) Ping(ctx context.Context) error {
	var one int
	if err := db.conn.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("sqlite: health ping: %w", err)
	}
	return nil
}

// Counts returns the row counts the health endpoints report.
func (db *DB) Counts(ctx context.Context) (repository.Stats, error) {
	var stats repository.Stats
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM subjects),
			(SELECT COUNT(*) FROM study_sessions)
	`).Scan(&stats.Users, &stats.Subjects, &stats.StudySessions)
	if err != nil {
		return repository.Stats{}, fmt.Errorf("sqlite: counting rows: %w", err)
	}
	return stats, nil
}

// Version returns the SQLite library version, surfaced by /health/db.
func (db *DB) Version(ctx context.Context) (string, error) {
	var version string
	if err := db.conn.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&version); err != nil {
		return "", fmt.Errorf("sqlite: reading version: %w", err)
	}
	return version, nil
}
