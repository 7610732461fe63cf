// Package snapshot keeps the faculty research store in step with the live directory.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Atypics3/About-My-Professor/internal/store"
	"github.com/Atypics3/About-My-Professor/internal/types"
)

// Source yields the current directory contents.
type Source interface {
	FetchEntries(ctx context.Context) (types.SnapshotMap, error)
}

// DiffWriter replaces the stored snapshot only when the fetched one differs.
type DiffWriter struct {
	store  store.KV[string]
	logger *slog.Logger
}

// NewDiffWriter creates a DiffWriter over kv.
func NewDiffWriter(kv store.KV[string], logger *slog.Logger) *DiffWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiffWriter{store: kv, logger: logger}
}

// Apply fetches from source and compares with the stored map. Equal maps
// (regardless of key order) cause no write; otherwise the store is replaced
// wholesale. A stored map that fails to load is treated as empty.
func (w *DiffWriter) Apply(ctx context.Context, source Source) (types.SnapshotResult, error) {
	var result types.SnapshotResult

	fresh, err := source.FetchEntries(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	result.Entries = len(fresh)

	cached, err := w.store.Load(ctx)
	if err != nil {
		w.logger.WarnContext(ctx, "snapshot store unreadable, treating as empty", "error", err)
		cached = types.SnapshotMap{}
	}

	if cmp.Equal(cached, fresh, cmpopts.EquateEmpty()) {
		w.logger.InfoContext(ctx, "snapshot unchanged", "entries", result.Entries)
		return result, nil
	}

	result.Added, result.Removed, result.Modified = countChanges(cached, fresh)
	w.logger.DebugContext(ctx, "snapshot diff", "diff", cmp.Diff(cached, fresh, cmpopts.EquateEmpty()))

	if err := w.store.Save(ctx, fresh); err != nil {
		return result, fmt.Errorf("failed to save snapshot: %w", err)
	}
	result.Changed = true
	w.logger.InfoContext(ctx, "snapshot replaced",
		"entries", result.Entries, "added", result.Added, "removed", result.Removed, "modified", result.Modified)
	return result, nil
}

func countChanges(old, fresh map[string]string) (added, removed, modified int) {
	for name, v := range fresh {
		prev, ok := old[name]
		switch {
		case !ok:
			added++
		case prev != v:
			modified++
		}
	}
	for name := range old {
		if _, ok := fresh[name]; !ok {
			removed++
		}
	}
	return added, removed, modified
}
