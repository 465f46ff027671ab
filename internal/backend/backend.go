// Package backend selects and constructs the persistence backend the
// pledge store runs on. The concrete technology is a deployment
// decision; everything behind kv.Store is interchangeable.
package backend

import (
	"context"

	"housefund/internal/kv"
)

// Type identifies a persistence backend.
type Type string

const (
	Memory   Type = "memory"
	Redis    Type = "redis"
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case Memory, Redis, SQLite, Postgres:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result contains the store instance and optional cleanup function.
type Result struct {
	Store   kv.Store
	Cleanup CleanupFunc
}

// Config holds everything a backend might need to come up.
type Config struct {
	Type Type

	RedisURL     string
	SQLiteDBPath string
	PostgresDSN  string
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
