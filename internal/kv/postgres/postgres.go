// Package postgres implements kv.Store on PostgreSQL via pgx. The
// records table mirrors the sqlite backend; conditional writes are an
// UPDATE guarded by the version token.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"housefund/internal/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Get(ctx context.Context, key string) (kv.Record, error) {
	var rec kv.Record
	err := s.pool.QueryRow(ctx,
		`SELECT value, version FROM records WHERE key = $1`, key,
	).Scan(&rec.Value, &rec.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return kv.Record{}, kv.ErrNotFound
	}
	if err != nil {
		return kv.Record{}, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, version int64) error {
	if version == 0 {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO records (key, value, version) VALUES ($1, $2, 1)`,
			key, value)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
				return kv.ErrVersionMismatch
			}
			return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE records SET value = $1, version = version + 1, updated_at = now()
		 WHERE key = $2 AND version = $3`,
		value, key, version)
	if err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return kv.ErrVersionMismatch
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM records WHERE key = $1`, key); err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, `select 1`).Scan(&one); err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
