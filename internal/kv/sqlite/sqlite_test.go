package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"housefund/internal/kv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLitePutGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, "k", []byte(`{"a":1}`), 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec, err := s.Get(ctx, "k")
	if err != nil || rec.Version != 1 || string(rec.Value) != `{"a":1}` {
		t.Fatalf("after create: rec=%+v err=%v", rec, err)
	}

	if err := s.Put(ctx, "k", []byte(`{"a":2}`), rec.Version); err != nil {
		t.Fatalf("update: %v", err)
	}
	rec, _ = s.Get(ctx, "k")
	if rec.Version != 2 {
		t.Fatalf("version after update = %d, want 2", rec.Version)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSQLiteConditionalWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v1"), 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("dup"), 0); !errors.Is(err, kv.ErrVersionMismatch) {
		t.Errorf("duplicate create = %v, want ErrVersionMismatch", err)
	}
	if err := s.Put(ctx, "k", []byte("stale"), 42); !errors.Is(err, kv.ErrVersionMismatch) {
		t.Errorf("stale version = %v, want ErrVersionMismatch", err)
	}

	// The losing write must not have replaced the value.
	rec, _ := s.Get(ctx, "k")
	if string(rec.Value) != "v1" {
		t.Errorf("value after lost races = %q, want v1", rec.Value)
	}
}

func TestSQLitePing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
