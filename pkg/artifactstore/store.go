// Package artifactstore persists compiled bytecode artifacts so a watch-mode
// session or a CI cache step can skip recompiling sources that haven't
// changed. Artifacts are addressed by the same cache key pkg/cache uses
// (a hash of source bytes plus the compiler options fingerprint), so the
// LRU in pkg/cache and a Store here can share keys across a process restart.
package artifactstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no artifact exists for a key.
var ErrNotFound = errors.New("artifactstore: artifact not found")

// Artifact is one persisted compilation result: the bytecode (encoded via
// pkg/irfmt) plus the metadata needed to decide whether it's still valid.
type Artifact struct {
	// ID identifies this specific compilation, independent of Key: two
	// artifacts with the same content-addressed Key (a recompile that
	// produced byte-identical bytecode) still get distinct IDs, the same
	// way pkg/emberlog's NewUnitID stamps a fresh uuid onto every compile
	// rather than reusing one derived from the unit's content.
	ID         uuid.UUID
	Key        string
	UnitName   string
	Bytecode   []byte // pkg/irfmt-encoded ir.Bytecode
	SourceHash string
	CompiledAt time.Time
}

// Store is the persistence backend for compiled artifacts. Implementations
// wrap a concrete backend (memory, SQL, SQLite, MongoDB, Redis).
type Store interface {
	Put(ctx context.Context, a Artifact) error
	Get(ctx context.Context, key string) (Artifact, error)
	Delete(ctx context.Context, key string) error
	// List returns every key starting with prefix (prefix == "" lists all).
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Config selects and configures a Store backend.
type Config struct {
	// Backend is one of "memory", "sql", "sqlite", "mongo", "redis".
	Backend string
	DSN     string
	// Database is the database name; only the mongo backend uses it.
	Database string
}

// DefaultConfig returns an in-process, non-persistent memory store.
func DefaultConfig() Config {
	return Config{Backend: "memory"}
}

// Open constructs the Store the config names. Backends that need a live
// connection (sql, sqlite, mongo, redis) dial eagerly and return any
// connection error.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sql":
		return OpenSQLStore(ctx, cfg.DSN)
	case "sqlite":
		return OpenSQLiteStore(ctx, cfg.DSN)
	case "mongo":
		return OpenMongoStore(ctx, cfg.DSN, cfg.Database)
	case "redis":
		return OpenRedisStore(ctx, cfg.DSN)
	default:
		return nil, errors.New("artifactstore: unknown backend " + cfg.Backend)
	}
}
