package memory

import (
	"context"
	"errors"
	"testing"

	"housefund/internal/kv"
)

func TestGetMissingKey(t *testing.T) {
	s := New()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestPutCreateAndUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v1"), 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec, err := s.Get(ctx, "k")
	if err != nil || string(rec.Value) != "v1" || rec.Version != 1 {
		t.Fatalf("after create: rec=%+v err=%v", rec, err)
	}

	if err := s.Put(ctx, "k", []byte("v2"), rec.Version); err != nil {
		t.Fatalf("update: %v", err)
	}
	rec, _ = s.Get(ctx, "k")
	if string(rec.Value) != "v2" || rec.Version != 2 {
		t.Fatalf("after update: rec=%+v", rec)
	}
}

func TestPutVersionMismatch(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Create-if-absent fails when the key exists.
	if err := s.Put(ctx, "k", []byte("v1"), 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("v2"), 0); !errors.Is(err, kv.ErrVersionMismatch) {
		t.Errorf("second create = %v, want ErrVersionMismatch", err)
	}

	// Stale token fails.
	if err := s.Put(ctx, "k", []byte("v2"), 99); !errors.Is(err, kv.ErrVersionMismatch) {
		t.Errorf("stale token = %v, want ErrVersionMismatch", err)
	}

	// Update of a missing key fails.
	if err := s.Put(ctx, "other", []byte("v"), 1); !errors.Is(err, kv.ErrVersionMismatch) {
		t.Errorf("update missing = %v, want ErrVersionMismatch", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.Put(ctx, "k", []byte("v"), 0)
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.Put(ctx, "k", []byte("abc"), 0)
	rec, _ := s.Get(ctx, "k")
	rec.Value[0] = 'X'

	again, _ := s.Get(ctx, "k")
	if string(again.Value) != "abc" {
		t.Fatalf("stored bytes mutated through returned slice: %q", again.Value)
	}
}
