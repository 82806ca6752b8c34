package artifactstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
)

// SQLStore persists artifacts in a client-server SQL database (MySQL or
// PostgreSQL, selected by the DSN's scheme: "mysql://" or "postgres://").
type SQLStore struct {
	db      *sql.DB
	driver  string
	bindFmt func(n int) string // formats the nth ('$1' vs '?') bind placeholder
}

const createArtifactsTableMySQL = `
CREATE TABLE IF NOT EXISTS ember_artifacts (
	key_hash    VARCHAR(64) PRIMARY KEY,
	id          CHAR(36) NOT NULL,
	unit_name   VARCHAR(255) NOT NULL,
	bytecode    LONGBLOB NOT NULL,
	source_hash VARCHAR(64) NOT NULL,
	compiled_at DATETIME NOT NULL
)`

const createArtifactsTablePostgres = `
CREATE TABLE IF NOT EXISTS ember_artifacts (
	key_hash    TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	unit_name   TEXT NOT NULL,
	bytecode    BYTEA NOT NULL,
	source_hash TEXT NOT NULL,
	compiled_at TIMESTAMPTZ NOT NULL
)`

// OpenSQLStore connects to dsn and ensures the artifacts table exists.
// dsn must be prefixed "mysql://", "postgres://" or "postgresql://". The
// "mysql://" prefix is stripped before the DSN reaches the MySQL driver; a
// postgres URL is handed to lib/pq unchanged.
func OpenSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	var driverName, createTable string
	var bindFmt func(n int) string

	switch {
	case strings.HasPrefix(dsn, "mysql://"):
		driverName = "mysql"
		dsn = strings.TrimPrefix(dsn, "mysql://")
		createTable = createArtifactsTableMySQL
		bindFmt = func(int) string { return "?" }
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driverName = "postgres"
		createTable = createArtifactsTablePostgres
		bindFmt = func(n int) string { return fmt.Sprintf("$%d", n) }
	default:
		return nil, fmt.Errorf("artifactstore: dsn %q must start with mysql:// or postgres://", dsn)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("artifactstore: open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("artifactstore: ping %s: %w", driverName, err)
	}

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("artifactstore: create table: %w", err)
	}

	return &SQLStore{db: db, driver: driverName, bindFmt: bindFmt}, nil
}

func (s *SQLStore) Put(ctx context.Context, a Artifact) error {
	query := fmt.Sprintf(`
		INSERT INTO ember_artifacts (key_hash, id, unit_name, bytecode, source_hash, compiled_at)
		VALUES (%s, %s, %s, %s, %s, %s)`,
		s.bindFmt(1), s.bindFmt(2), s.bindFmt(3), s.bindFmt(4), s.bindFmt(5), s.bindFmt(6))
	if s.driver == "mysql" {
		query += `
			ON DUPLICATE KEY UPDATE id=VALUES(id), unit_name=VALUES(unit_name), bytecode=VALUES(bytecode), source_hash=VALUES(source_hash), compiled_at=VALUES(compiled_at)`
	} else {
		query += ` ON CONFLICT (key_hash) DO UPDATE SET
			id = EXCLUDED.id,
			unit_name = EXCLUDED.unit_name,
			bytecode = EXCLUDED.bytecode,
			source_hash = EXCLUDED.source_hash,
			compiled_at = EXCLUDED.compiled_at`
	}

	_, err := s.db.ExecContext(ctx, query, a.Key, a.ID.String(), a.UnitName, a.Bytecode, a.SourceHash, a.CompiledAt)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) (Artifact, error) {
	query := fmt.Sprintf(
		`SELECT key_hash, id, unit_name, bytecode, source_hash, compiled_at FROM ember_artifacts WHERE key_hash = %s`,
		s.bindFmt(1))

	var a Artifact
	var id string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&a.Key, &id, &a.UnitName, &a.Bytecode, &a.SourceHash, &a.CompiledAt)
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

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM ember_artifacts WHERE key_hash = %s`, s.bindFmt(1))
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

func (s *SQLStore) List(ctx context.Context, prefix string) ([]string, error) {
	var query string
	var args []interface{}
	if prefix == "" {
		query = `SELECT key_hash FROM ember_artifacts`
	} else {
		query = fmt.Sprintf(`SELECT key_hash FROM ember_artifacts WHERE key_hash LIKE %s`, s.bindFmt(1))
		args = append(args, prefix+"%")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLStore) Close() error { return s.db.Close() }
