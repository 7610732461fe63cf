// Package store persists the name-keyed maps shared by the resolution,
// consolidation and snapshot runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Atypics3/About-My-Professor/schemas"
)

// KV loads and saves one whole name-keyed map.
// Save replaces the persisted map wholesale.
type KV[V any] interface {
	Load(ctx context.Context) (map[string]V, error)
	Save(ctx context.Context, entries map[string]V) error
}

// Bucket names one persisted map. File backends store it as <Name>.json;
// database backends use Name as the bucket column value.
type Bucket struct {
	Name   string
	Schema string
}

// Known buckets.
var (
	Resolutions = Bucket{Name: "prof_link", Schema: schemas.ResolutionStore}
	Identifiers = Bucket{Name: "prof_uid", Schema: schemas.IdentifierStore}
	Snapshots   = Bucket{Name: "prof_research_topics", Schema: schemas.SnapshotStore}
)

// Backend names accepted by Open.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Error represents a persistence failure for one bucket.
// Preserved is set when the unreadable data is kept aside by the backend, so
// saving over the bucket loses nothing.
type Error struct {
	Op        string
	Bucket    string
	Message   string
	Cause     error
	Preserved bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Bucket, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Bucket, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsPreserved reports whether err is a load failure whose data the backend
// keeps aside, making it safe to continue from an empty map and save.
func IsPreserved(err error) bool {
	var storeErr *Error
	return errors.As(err, &storeErr) && storeErr.Preserved
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	Dir         string
	SQLitePath  string
	DatabaseURL string
	Logger      *slog.Logger
}

// Stores holds the three buckets on one backend.
type Stores struct {
	Resolutions KV[*string]
	Identifiers KV[string]
	Snapshots   KV[string]
	Backend     string

	closer func()
}

// Close releases any backend connection.
func (s *Stores) Close() {
	if s.closer != nil {
		s.closer()
	}
}

// Open builds the three stores on the configured backend.
func Open(ctx context.Context, opts Options) (*Stores, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Backend {
	case "", BackendJSON:
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		return &Stores{
			Resolutions: NewJSONFile[*string](filepath.Join(dir, Resolutions.Name+".json"), Resolutions.Schema, logger),
			Identifiers: NewJSONFile[string](filepath.Join(dir, Identifiers.Name+".json"), Identifiers.Schema, logger),
			Snapshots:   NewJSONFile[string](filepath.Join(dir, Snapshots.Name+".json"), Snapshots.Schema, logger),
			Backend:     BackendJSON,
		}, nil

	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "prof_resolver.db")
		}
		db, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		db.logger = logger
		return &Stores{
			Resolutions: SQLiteBucket[*string](db, Resolutions),
			Identifiers: SQLiteBucket[string](db, Identifiers),
			Snapshots:   SQLiteBucket[string](db, Snapshots),
			Backend:     BackendSQLite,
			closer:      func() { _ = db.Close() },
		}, nil

	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend requires a database URL (set DATABASE_URL)")
		}
		db, err := ConnectPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		db.logger = logger
		return &Stores{
			Resolutions: PostgresBucket[*string](db, Resolutions),
			Identifiers: PostgresBucket[string](db, Identifiers),
			Snapshots:   PostgresBucket[string](db, Snapshots),
			Backend:     BackendPostgres,
			closer:      db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}
