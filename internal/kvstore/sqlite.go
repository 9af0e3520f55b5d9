package kvstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

const (
	sqliteSelect = `SELECT value FROM kv_entries WHERE key = ?;`
	sqliteUpsert = `INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`
	sqliteDelete = `DELETE FROM kv_entries WHERE key = ?;`
)

// SQLiteStore persists entries in a single SQLite file. One connection is
// kept open so transactions are serialized.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errSQLitePathRequired
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf(errSQLiteDirFmt, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf(errSQLiteOpenFmt, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf(errSQLiteWALFmt, err)
	}
	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf(errInitSchemaFmt, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, sqliteSelect, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf(errGetFmt, key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteUpsert, key, nonNil(value), now()); err != nil {
		return fmt.Errorf(errSetFmt, key, err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := checkKey(key); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf(errUpdateBeginFmt, key, err)
	}
	defer func() { _ = tx.Rollback() }()

	var current []byte
	exists := true
	err = tx.QueryRowContext(ctx, sqliteSelect, key).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return fmt.Errorf(errUpdateReadFmt, key, err)
	}

	next, err := fn(current, exists)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, sqliteUpsert, key, nonNil(next), now()); err != nil {
		return fmt.Errorf(errUpdateWriteFmt, key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf(errUpdateCommitFmt, key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteDelete, key); err != nil {
		return fmt.Errorf(errDeleteFmt, key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
