// Package sqlite implements kv.Store on a local SQLite database.
// Conditional writes use a version column: an UPDATE guarded by the
// caller's version token, so a lost race affects zero rows instead of
// overwriting newer data.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"housefund/internal/kv"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (kv.Record, error) {
	var rec kv.Record
	err := s.db.QueryRowContext(ctx,
		`SELECT value, version FROM records WHERE key = ?`, key,
	).Scan(&rec.Value, &rec.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return kv.Record{}, kv.ErrNotFound
	}
	if err != nil {
		return kv.Record{}, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, version int64) error {
	if version == 0 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO records (key, value, version, updated_at) VALUES (?, ?, 1, CURRENT_TIMESTAMP)`,
			key, value)
		if err != nil {
			// A unique constraint violation means someone created the
			// key first; report it as a lost race.
			if isConstraintErr(err) {
				return kv.ErrVersionMismatch
			}
			return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET value = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE key = ? AND version = ?`,
		value, key, version)
	if err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return kv.ErrVersionMismatch
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func isConstraintErr(err error) bool {
	// modernc.org/sqlite surfaces SQLITE_CONSTRAINT in the error text;
	// there is no exported sentinel to match against.
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}
