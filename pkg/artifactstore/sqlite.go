package artifactstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SQLiteStore persists artifacts in a local SQLite file — a backend for a
// single-developer `emberc` invocation that keeps the cache across process
// restarts without standing up a server.
type SQLiteStore struct {
	db *sql.DB
}

const createArtifactsTableSQLite = `
CREATE TABLE IF NOT EXISTS ember_artifacts (
	key_hash    TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	unit_name   TEXT NOT NULL,
	bytecode    BLOB NOT NULL,
	source_hash TEXT NOT NULL,
	compiled_at DATETIME NOT NULL
)`

// OpenSQLiteStore opens (creating if necessary) a SQLite database file at
// path. path == "" uses an in-memory database.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		path += "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("artifactstore: open sqlite: %w", err)
	}
	// SQLite handles one writer at a time; avoid "database is locked" churn
	// from concurrent watch-mode rebuilds.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("artifactstore: ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, createArtifactsTableSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("artifactstore: create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, a Artifact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ember_artifacts (key_hash, id, unit_name, bytecode, source_hash, compiled_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key_hash) DO UPDATE SET
			id = excluded.id,
			unit_name = excluded.unit_name,
			bytecode = excluded.bytecode,
			source_hash = excluded.source_hash,
			compiled_at = excluded.compiled_at`,
		a.Key, a.ID.String(), a.UnitName, a.Bytecode, a.SourceHash, a.CompiledAt)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Artifact, error) {
	var a Artifact
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT key_hash, id, unit_name, bytecode, source_hash, compiled_at FROM ember_artifacts WHERE key_hash = ?`,
		key,
	).Scan(&a.Key, &id, &a.UnitName, &a.Bytecode, &a.SourceHash, &a.CompiledAt)
	if err == sql.ErrNoRows {
		return Artifact{}, ErrNotFound
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("artifactstore: get %s: %w", key, err)
	}
	if a.ID, err = uuid.Parse(id); err != nil {
		return Artifact{}, fmt.Errorf("artifactstore: get %s: parse id: %w", key, err)
	}
	return a, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ember_artifacts WHERE key_hash = ?`, key)
	return err
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key_hash FROM ember_artifacts WHERE key_hash LIKE ?`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("artifactstore: list: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
