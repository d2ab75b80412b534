// Package sqlite opens the embedded SQLite database and creates its schema.
//
// All queries live in sqlstore; this package only knows how to get a
// *sql.DB into the shape sqlstore expects.
//
// ONE CONNECTION:
// SQLite allows a single writer at a time. Rather than letting the pool open
// several connections that then fight over the write lock (SQLITE_BUSY), the
// pool is capped at one connection: database/sql queues callers, and every
// transaction runs alone. It also makes ":memory:" work, since each new
// connection to ":memory:" would otherwise be a separate, empty database.
//
// The catch: while a *sql.Rows or *sql.Tx is open it holds that connection,
// so code must close rows before issuing the next query.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary builds without CGo.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/petmatch/petmatch/internal/repository/sqlstore"
)

// Dialect is the sqlstore dialect for SQLite.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	IsUniqueViolation: isUniqueViolation,
}

// New opens (creating if needed) the database at dbPath, applies pragmas and
// migrations, and returns the store.
//
// dbPath examples:
//   - "data/petmatch.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
func New(ctx context.Context, dbPath string) (*sqlstore.Store, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		// readers don't block the writer on file databases
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		// wait instead of failing when another process (cmd/seed) holds the lock
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return sqlstore.New(conn, Dialect), nil
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// each start.
func migrate(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			phone         TEXT NOT NULL DEFAULT '',
			address       TEXT NOT NULL DEFAULT '',
			profile       TEXT,
			preferences   TEXT,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			message    TEXT NOT NULL,
			is_read    BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating user tables: %w", err)
	}

	// status and adopted_by are two columns for one fact; the CHECK keeps
	// them from disagreeing.
	_, err = conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pets (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			type           TEXT NOT NULL,
			breed          TEXT NOT NULL DEFAULT '',
			age            REAL NOT NULL,
			location       TEXT NOT NULL DEFAULT '',
			description    TEXT NOT NULL DEFAULT '',
			image          TEXT NOT NULL DEFAULT '',
			home_type      TEXT NOT NULL DEFAULT 'Any',
			care_level     TEXT NOT NULL DEFAULT 'Medium',
			activity_level TEXT NOT NULL DEFAULT 'Medium',
			kid_friendly   BOOLEAN NOT NULL DEFAULT 1,
			contact_email  TEXT NOT NULL DEFAULT '',
			contact_phone  TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'available'
			               CHECK (status IN ('available', 'adopted')),
			adopted_by     TEXT,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK ((status = 'adopted') = (adopted_by IS NOT NULL))
		);
		CREATE INDEX IF NOT EXISTS idx_pets_status ON pets(status);
		CREATE INDEX IF NOT EXISTS idx_pets_created_at ON pets(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating pets table: %w", err)
	}

	// Listings created before pets had an owner reference have none; the
	// column is nullable and the service repairs it on read.
	if err := addColumnIfNotExists(ctx, conn, "pets", "owner_id", "TEXT"); err != nil {
		return fmt.Errorf("adding owner_id to pets: %w", err)
	}

	_, err = conn.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_pets_owner_id ON pets(owner_id);

		CREATE TABLE IF NOT EXISTS adoptions (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			pet_id        TEXT NOT NULL UNIQUE,
			adoption_date DATETIME NOT NULL,
			status        TEXT NOT NULL DEFAULT 'completed'
			              CHECK (status IN ('pending', 'approved', 'completed'))
		);
		CREATE INDEX IF NOT EXISTS idx_adoptions_user_id ON adoptions(user_id);

		CREATE TABLE IF NOT EXISTS user_adopted_pets (
			user_id  TEXT NOT NULL REFERENCES users(id),
			pet_id   TEXT NOT NULL,
			position INTEGER NOT NULL,
			added_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, pet_id)
		);

		CREATE TABLE IF NOT EXISTS messages (
			id          TEXT PRIMARY KEY,
			sender_id   TEXT NOT NULL,
			receiver_id TEXT NOT NULL,
			pet_id      TEXT NOT NULL,
			content     TEXT NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_messages_sender_id ON messages(sender_id);
		CREATE INDEX IF NOT EXISTS idx_messages_receiver_id ON messages(receiver_id);
	`)
	if err != nil {
		return fmt.Errorf("creating adoption and message tables: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Running it against an up to date schema is a no-op.
func addColumnIfNotExists(ctx context.Context, conn *sql.DB, table, column, definition string) error {
	var count int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = conn.ExecContext(ctx, fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	// extended result codes are not always enabled; fall back to the text
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
