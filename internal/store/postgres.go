package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	bucket     TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (bucket, name)
)`

// PostgresDB wraps a PostgreSQL connection pool
type PostgresDB struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// ConnectPostgres establishes a connection pool and ensures the table exists.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create kv_entries table: %w", err)
	}

	return &PostgresDB{pool: pool, logger: slog.Default()}, nil
}

// Close closes the connection pool
func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Postgres is one bucket of a PostgresDB.
type Postgres[V any] struct {
	db     *PostgresDB
	bucket string
}

// PostgresBucket returns the KV view of bucket b.
func PostgresBucket[V any](db *PostgresDB, b Bucket) *Postgres[V] {
	return &Postgres[V]{db: db, bucket: b.Name}
}

// Load reads every entry in the bucket. Rows whose value does not decode
// are logged and skipped; Save leaves them in place.
func (s *Postgres[V]) Load(ctx context.Context) (map[string]V, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT name, value FROM kv_entries WHERE bucket = $1`,
		s.bucket,
	)
	if err != nil {
		return map[string]V{}, &Error{Op: "load", Bucket: s.bucket, Message: "query failed", Cause: err}
	}
	defer rows.Close()

	entries := map[string]V{}
	for rows.Next() {
		var (
			name string
			raw  []byte
		)
		if err := rows.Scan(&name, &raw); err != nil {
			return map[string]V{}, &Error{Op: "load", Bucket: s.bucket, Message: "scan failed", Cause: err}
		}
		v, ok := decodeValue[V](raw)
		if !ok {
			s.db.logger.WarnContext(ctx, "skipping undecodable row", "bucket", s.bucket, "name", name)
			continue
		}
		entries[name] = v
	}
	if err := rows.Err(); err != nil {
		return map[string]V{}, &Error{Op: "load", Bucket: s.bucket, Message: "row iteration failed", Cause: err}
	}
	return entries, nil
}

// Save upserts every entry and deletes keys no longer present, in one
// transaction. Rows that do not decode are never deleted.
func (s *Postgres[V]) Save(ctx context.Context, entries map[string]V) error {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return &Error{Op: "save", Bucket: s.bucket, Message: "begin transaction", Cause: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stale, err := s.staleNames(ctx, tx, entries)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM kv_entries WHERE bucket = $1 AND name = ANY($2)`,
			s.bucket, stale,
		); err != nil {
			return &Error{Op: "save", Bucket: s.bucket, Message: "delete stale keys", Cause: err}
		}
	}

	batch := &pgx.Batch{}
	for name, v := range entries {
		raw, err := json.Marshal(v)
		if err != nil {
			return &Error{Op: "save", Bucket: s.bucket, Message: fmt.Sprintf("marshal %q", name), Cause: err}
		}
		batch.Queue(
			`INSERT INTO kv_entries (bucket, name, value)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (bucket, name) DO UPDATE SET value = $3, updated_at = NOW()`,
			s.bucket, name, raw,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return &Error{Op: "save", Bucket: s.bucket, Message: "upsert entries", Cause: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &Error{Op: "save", Bucket: s.bucket, Message: "commit", Cause: err}
	}
	return nil
}

// staleNames lists stored names missing from entries whose value still decodes.
func (s *Postgres[V]) staleNames(ctx context.Context, tx pgx.Tx, entries map[string]V) ([]string, error) {
	rows, err := tx.Query(ctx, `SELECT name, value FROM kv_entries WHERE bucket = $1`, s.bucket)
	if err != nil {
		return nil, &Error{Op: "save", Bucket: s.bucket, Message: "list existing keys", Cause: err}
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var (
			name string
			raw  []byte
		)
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, &Error{Op: "save", Bucket: s.bucket, Message: "scan existing keys", Cause: err}
		}
		if _, keep := entries[name]; keep {
			continue
		}
		if _, ok := decodeValue[V](raw); !ok {
			s.db.logger.WarnContext(ctx, "keeping undecodable row", "bucket", s.bucket, "name", name)
			continue
		}
		stale = append(stale, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "save", Bucket: s.bucket, Message: "list existing keys", Cause: err}
	}
	return stale, nil
}
