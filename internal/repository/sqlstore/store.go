// Package sqlstore implements the repository interfaces over database/sql.
//
// The same queries run on SQLite (modernc.org/sqlite) and Postgres (pgx's
// database/sql driver). Queries are written with `?` placeholders and
// rebound per dialect; everything else is portable SQL. Opening the
// connection and creating the schema is the job of the sqlite and postgres
// packages, which hand the ready *sql.DB to New.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/petmatch/petmatch/internal/apperror"
	"github.com/petmatch/petmatch/internal/repository"
)

// compile-time check that *Store implements every repository interface
var _ repository.Store = (*Store)(nil)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name string
	// NumberedPlaceholders rewrites `?` to `$1, $2, ...` (Postgres).
	NumberedPlaceholders bool
	// IsUniqueViolation recognises the driver's unique-constraint error.
	IsUniqueViolation func(error) bool
}

// Store is the SQL-backed repository.Store.
type Store struct {
	conn    *sql.DB
	dialect Dialect
	now     func() time.Time
}

// New wraps an open, migrated connection pool.
func New(conn *sql.DB, dialect Dialect) *Store {
	return &Store{
		conn:    conn,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DB exposes the pool for tooling (seeding, health checks).
func (s *Store) DB() *sql.DB { return s.conn }

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return apperror.Transient("pinging database", err)
	}
	return nil
}

// queryer is the subset of *sql.DB and *sql.Tx the helpers need, so the same
// code runs inside and outside a transaction.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rebind rewrites `?` placeholders for the dialect.
func (s *Store) rebind(query string) string {
	if !s.dialect.NumberedPlaceholders {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, q queryer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// inTx runs fn in a transaction, rolling back on any error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.wrap("committing transaction", err)
	}
	return nil
}

// wrap classifies a driver error: connectivity failures become
// apperror.Transient, anything else is wrapped with the operation name.
// Errors that are already *apperror.AppError pass through.
func (s *Store) wrap(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isTransient(err) {
		return apperror.Transient(op, err)
	}
	return fmt.Errorf("%s: %s: %w", s.dialect.Name, op, err)
}

func (s *Store) isUnique(err error) bool {
	return s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err)
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
