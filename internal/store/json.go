package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/Atypics3/About-My-Professor/internal/schemas"
)

const lockRetryDelay = 50 * time.Millisecond

// JSONFile stores a map as one indented JSON object with sorted keys.
// Writes go to a temp file that is renamed over the target while holding
// an advisory lock on <path>.lock.
type JSONFile[V any] struct {
	path   string
	schema string
	lock   *flock.Flock
	logger *slog.Logger

	mu      sync.Mutex
	corrupt bool
}

// NewJSONFile creates a JSON file store validated against the named schema.
// An empty schema name disables validation.
func NewJSONFile[V any](path, schema string, logger *slog.Logger) *JSONFile[V] {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONFile[V]{
		path:   path,
		schema: schema,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}
}

// Path returns the store file path.
func (s *JSONFile[V]) Path() string {
	return s.path
}

// Load reads the file. A missing file is an empty map. An unreadable or
// corrupt file also yields an empty map along with an *Error; the corrupt
// file is moved aside to <path>.corrupt by the next Save.
func (s *JSONFile[V]) Load(ctx context.Context) (map[string]V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := map[string]V{}
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}

	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return empty, s.fail("load", "failed to acquire lock", err)
	}
	if locked {
		defer func() { _ = s.lock.Unlock() }()
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return empty, nil
	}
	if err != nil {
		return empty, s.fail("load", "failed to read file", err)
	}

	if s.schema != "" {
		if err := schemas.ValidateDocument(s.schema, data); err != nil {
			s.corrupt = true
			return empty, s.preserved("store file does not match schema", err)
		}
	}

	var entries map[string]V
	if err := json.Unmarshal(data, &entries); err != nil {
		s.corrupt = true
		return empty, s.preserved("failed to parse file", err)
	}
	if entries == nil {
		return empty, nil
	}
	return entries, nil
}

// Save writes entries atomically, replacing whatever the file held.
func (s *JSONFile[V]) Save(ctx context.Context, entries map[string]V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeIndented(entries)
	if err != nil {
		return s.fail("save", "failed to marshal entries", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.fail("save", "failed to create directory", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return s.fail("save", "failed to acquire lock", err)
	}
	if !locked {
		return s.fail("save", "store file is locked by another process", nil)
	}
	defer func() { _ = s.lock.Unlock() }()

	if s.corrupt {
		backup := s.path + ".corrupt"
		if err := os.Rename(s.path, backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return s.fail("save", "failed to preserve corrupt file", err)
		}
		s.logger.Warn("preserved corrupt store file", "path", backup)
		s.corrupt = false
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return s.fail("save", "failed to create temp file", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return s.fail("save", "failed to write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return s.fail("save", "failed to sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return s.fail("save", "failed to close temp file", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return s.fail("save", "failed to set file mode", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return s.fail("save", "failed to replace file", err)
	}

	s.logger.Debug("store saved", "path", s.path, "entries", len(entries))
	return nil
}

func (s *JSONFile[V]) fail(op, msg string, cause error) error {
	return &Error{Op: op, Bucket: s.path, Message: msg, Cause: cause}
}

// preserved reports a corrupt file that the next Save moves to <path>.corrupt.
func (s *JSONFile[V]) preserved(msg string, cause error) error {
	return &Error{Op: "load", Bucket: s.path, Message: msg, Cause: cause, Preserved: true}
}

// encodeIndented renders entries with two-space indentation, sorted keys and
// unescaped '&', so links stay readable in diffs.
func encodeIndented[V any](entries map[string]V) ([]byte, error) {
	if entries == nil {
		entries = map[string]V{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
