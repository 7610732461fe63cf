package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	bucket TEXT NOT NULL,
	name   TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (bucket, name)
);`

// SQLiteDB is a single-file database holding every bucket.
type SQLiteDB struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteDB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteDB{db: db, path: path, logger: slog.Default()}, nil
}

// Close closes the database.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// SQLite is one bucket of a SQLiteDB. Values are stored JSON-encoded.
type SQLite[V any] struct {
	db     *SQLiteDB
	bucket string
}

// SQLiteBucket returns the KV view of bucket b.
func SQLiteBucket[V any](db *SQLiteDB, b Bucket) *SQLite[V] {
	return &SQLite[V]{db: db, bucket: b.Name}
}

// Load reads every entry in the bucket. Rows whose value does not decode
// are logged and skipped; Save leaves them in place.
func (s *SQLite[V]) Load(ctx context.Context) (map[string]V, error) {
	entries := map[string]V{}
	rows, err := s.db.db.QueryContext(ctx, `SELECT name, value FROM kv_entries WHERE bucket = ?`, s.bucket)
	if err != nil {
		return entries, &Error{Op: "load", Bucket: s.bucket, Message: "query failed", Cause: err}
	}
	defer rows.Close()

	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return map[string]V{}, &Error{Op: "load", Bucket: s.bucket, Message: "scan failed", Cause: err}
		}
		v, ok := decodeValue[V]([]byte(raw))
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

// Save makes the bucket hold exactly entries, in one transaction. Rows that
// do not decode are never deleted, so a damaged row cannot take the rest of
// the bucket with it.
func (s *SQLite[V]) Save(ctx context.Context, entries map[string]V) (err error) {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "save", Bucket: s.bucket, Message: "begin transaction", Cause: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stale, err := s.staleNames(ctx, tx, entries)
	if err != nil {
		return err
	}
	for _, name := range stale {
		if _, err = tx.ExecContext(ctx, `DELETE FROM kv_entries WHERE bucket = ? AND name = ?`, s.bucket, name); err != nil {
			return &Error{Op: "save", Bucket: s.bucket, Message: fmt.Sprintf("delete %q", name), Cause: err}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO kv_entries (bucket, name, value) VALUES (?, ?, ?)
		ON CONFLICT (bucket, name) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return &Error{Op: "save", Bucket: s.bucket, Message: "prepare upsert", Cause: err}
	}
	defer stmt.Close()

	for name, v := range entries {
		raw, mErr := json.Marshal(v)
		if mErr != nil {
			err = &Error{Op: "save", Bucket: s.bucket, Message: fmt.Sprintf("marshal %q", name), Cause: mErr}
			return err
		}
		if _, err = stmt.ExecContext(ctx, s.bucket, name, string(raw)); err != nil {
			return &Error{Op: "save", Bucket: s.bucket, Message: fmt.Sprintf("upsert %q", name), Cause: err}
		}
	}

	if err = tx.Commit(); err != nil {
		return &Error{Op: "save", Bucket: s.bucket, Message: "commit", Cause: err}
	}
	return nil
}

// staleNames lists stored names missing from entries whose value still decodes.
func (s *SQLite[V]) staleNames(ctx context.Context, tx *sql.Tx, entries map[string]V) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name, value FROM kv_entries WHERE bucket = ?`, s.bucket)
	if err != nil {
		return nil, &Error{Op: "save", Bucket: s.bucket, Message: "list existing keys", Cause: err}
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, &Error{Op: "save", Bucket: s.bucket, Message: "scan existing keys", Cause: err}
		}
		if _, keep := entries[name]; keep {
			continue
		}
		if _, ok := decodeValue[V]([]byte(raw)); !ok {
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

func decodeValue[V any](raw []byte) (V, bool) {
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}
