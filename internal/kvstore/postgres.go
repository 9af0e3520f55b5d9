package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgSchema = `CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	pgSelect     = `SELECT value FROM kv_entries WHERE key = $1`
	pgUpsert     = `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	pgDelete     = `DELETE FROM kv_entries WHERE key = $1`
	pgLockForKey = `SELECT pg_advisory_xact_lock(hashtext($1))`
)

// PostgresStore keeps entries in one table. Updates take a transaction-scoped
// advisory lock on the key so absent keys are serialized too.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool and makes sure the table exists.
// The pool is owned by the caller.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf(errInitSchemaFmt, err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var value []byte
	err := s.pool.QueryRow(ctx, pgSelect, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(errGetFmt, key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, pgUpsert, key, nonNil(value)); err != nil {
		return fmt.Errorf(errSetFmt, key, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := checkKey(key); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf(errUpdateBeginFmt, key, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, pgLockForKey, key); err != nil {
		return fmt.Errorf(errUpdateLockFmt, key, err)
	}

	var current []byte
	exists := true
	err = tx.QueryRow(ctx, pgSelect, key).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		exists = false
	} else if err != nil {
		return fmt.Errorf(errUpdateReadFmt, key, err)
	}

	next, err := fn(current, exists)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, pgUpsert, key, nonNil(next)); err != nil {
		return fmt.Errorf(errUpdateWriteFmt, key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf(errUpdateCommitFmt, key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, pgDelete, key); err != nil {
		return fmt.Errorf(errDeleteFmt, key, err)
	}
	return nil
}

// Close is a no-op; the pool belongs to the caller
func (s *PostgresStore) Close() error {
	return nil
}
