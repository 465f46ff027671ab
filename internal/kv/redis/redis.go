// Package redis implements kv.Store on a Redis server. The record is
// stored as a single JSON envelope carrying the payload and its
// version token; conditional writes run inside a WATCH/MULTI
// transaction so concurrent writers fail cleanly instead of clobbering
// each other.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis"

	"housefund/internal/kv"
)

type Store struct {
	client *redis.Client
}

type envelope struct {
	Version int64  `json:"version"`
	Value   []byte `json:"value"`
}

func New(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Get(_ context.Context, key string) (kv.Record, error) {
	data, err := s.client.Get(key).Bytes()
	if err == redis.Nil {
		return kv.Record{}, kv.ErrNotFound
	}
	if err != nil {
		return kv.Record{}, fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return kv.Record{}, fmt.Errorf("decode envelope: %w", err)
	}
	return kv.Record{Value: env.Value, Version: env.Version}, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte, version int64) error {
	txn := func(tx *redis.Tx) error {
		current := int64(0)
		data, err := tx.Get(key).Bytes()
		switch {
		case err == redis.Nil:
			// key absent, create only when version token is 0
		case err != nil:
			return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
		default:
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				return fmt.Errorf("decode envelope: %w", err)
			}
			current = env.Version
		}
		if current != version {
			return kv.ErrVersionMismatch
		}

		next, err := json.Marshal(envelope{Version: version + 1, Value: value})
		if err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
		_, err = tx.Pipelined(func(pipe redis.Pipeliner) error {
			pipe.Set(key, next, 0)
			return nil
		})
		return err
	}

	err := s.client.Watch(txn, key)
	if err == redis.TxFailedErr {
		// Watched key changed underneath us.
		return kv.ErrVersionMismatch
	}
	return err
}

func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.client.Del(key).Err(); err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	if err := s.client.Ping().Err(); err != nil {
		return fmt.Errorf("%w: %v", kv.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
