// Package memory provides an in-process kv.Store used for development
// and tests.
package memory

import (
	"context"
	"sync"

	"housefund/internal/kv"
)

type Store struct {
	mu    sync.Mutex
	items map[string]kv.Record
}

func New() *Store {
	return &Store{items: make(map[string]kv.Record)}
}

func (s *Store) Get(_ context.Context, key string) (kv.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	if !ok {
		return kv.Record{}, kv.ErrNotFound
	}
	// Copy so callers cannot mutate stored bytes.
	out := kv.Record{Value: append([]byte(nil), rec.Value...), Version: rec.Version}
	return out, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.items[key]
	if version == 0 {
		if exists {
			return kv.ErrVersionMismatch
		}
	} else if !exists || current.Version != version {
		return kv.ErrVersionMismatch
	}
	s.items[key] = kv.Record{
		Value:   append([]byte(nil), value...),
		Version: version + 1,
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
