// Package store persists group aggregates, rotation progress and the
// per-station score ledger. Every controller operation runs inside one
// database transaction (Store.InTx), so the aggregate score, the progress
// total and the ledger are committed or rolled back together.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store wraps the shared *sql.DB in an sqlx.DB whose bind type matches the
// driver, so queries written with ? are rebound for Postgres.
type Store struct {
	db *sqlx.DB
}

var bindDrivers = map[string]string{
	"sqlite":   "sqlite3",
	"postgres": "pgx",
}

func New(db *sql.DB, driver string) (*Store, error) {
	name, ok := bindDrivers[driver]
	if !ok {
		return nil, fmt.Errorf("unknown driver %q", driver)
	}
	return &Store{db: sqlx.NewDb(db, name)}, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx runs fn inside a transaction, committing only if fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SeedGroups makes sure an aggregate row exists for every group id.
// Idempotent: existing rows keep their score.
func (s *Store) SeedGroups(ctx context.Context, ids []int) error {
	return s.InTx(ctx, func(tx *Tx) error {
		for _, id := range ids {
			if err := tx.EnsureGroup(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// Tx is one unit of work. It is only valid inside the InTx callback.
type Tx struct {
	tx *sqlx.Tx
}

func (t *Tx) get(ctx context.Context, dest any, query string, args ...any) error {
	err := t.tx.GetContext(ctx, dest, t.tx.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return errNoRows
	}
	return err
}

func (t *Tx) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

var errNoRows = errors.New("no rows")

func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
