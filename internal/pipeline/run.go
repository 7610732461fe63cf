// Package pipeline provides the high-level orchestration for resolution,
// consolidation and snapshot runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Atypics3/About-My-Professor/internal/cache"
	"github.com/Atypics3/About-My-Professor/internal/consolidate"
	"github.com/Atypics3/About-My-Professor/internal/directory"
	"github.com/Atypics3/About-My-Professor/internal/resolver"
	"github.com/Atypics3/About-My-Professor/internal/snapshot"
	"github.com/Atypics3/About-My-Professor/internal/store"
	"github.com/Atypics3/About-My-Professor/internal/types"
)

// Step names reported through ProgressCallback.
const (
	StepLoad    = "load"
	StepResolve = "resolve"
	StepFlush   = "flush"
	StepMerge   = "merge"
	StepFetch   = "snapshot"
)

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when run progress occurs
type ProgressCallback func(event ProgressEvent)

// SourceOpener starts a listing session. The session is closed when the run ends.
type SourceOpener func(ctx context.Context) (resolver.ListingSource, error)

// ResolutionOptions holds configuration for a resolution run
type ResolutionOptions struct {
	Store         store.KV[*string]
	OpenSource    SourceOpener
	Provider      resolver.SearchProvider
	Matcher       *directory.Matcher
	Qualifier     string
	Workers       int
	SearchTimeout time.Duration
	MaxPages      int
	Logger        *slog.Logger
	OnProgress    ProgressCallback
}

func emitProgress(cb ProgressCallback, runID, step, message string, content any) {
	if cb != nil {
		cb(ProgressEvent{Step: step, Message: message, RunID: runID, Content: content})
	}
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// loadForUpdate loads a store the caller will save back. A failed load is
// only downgraded to an empty map when the backend kept the unreadable data
// aside; otherwise saving would wipe entries that were never read.
func loadForUpdate[V any](ctx context.Context, kv store.KV[V], logger *slog.Logger, name string) (map[string]V, error) {
	entries, err := kv.Load(ctx)
	if err != nil {
		if !store.IsPreserved(err) {
			return nil, fmt.Errorf("failed to load %s store: %w", name, err)
		}
		logger.WarnContext(ctx, "store unreadable, starting empty", "store", name, "error", err)
		return map[string]V{}, nil
	}
	if entries == nil {
		return map[string]V{}, nil
	}
	return entries, nil
}

// loadOrEmpty loads a store for reading only, downgrading any failure to a
// warning and an empty map.
func loadOrEmpty[V any](ctx context.Context, kv store.KV[V], logger *slog.Logger, name string) map[string]V {
	entries, err := kv.Load(ctx)
	if err != nil {
		logger.WarnContext(ctx, "store unreadable, starting empty", "store", name, "error", err)
		return map[string]V{}
	}
	if entries == nil {
		return map[string]V{}
	}
	return entries
}

// RunResolution scrapes the listing and resolves every instructor name.
// Whatever the run learned is flushed to the store even when the run fails
// or ctx is cancelled; run and flush errors are both returned. A store that
// cannot be read, or a listing that cannot be opened, ends the run with no write.
func RunResolution(ctx context.Context, opts ResolutionOptions) (types.RunStats, error) {
	runID := uuid.NewString()
	logger := loggerOrDefault(opts.Logger).With("run_id", runID)
	if err := ctx.Err(); err != nil {
		return types.RunStats{RunID: runID}, err
	}

	seed, err := loadForUpdate(ctx, opts.Store, logger, store.Resolutions.Name)
	if err != nil {
		return types.RunStats{RunID: runID}, err
	}
	c := cache.New(opts.Matcher, seed, logger)
	emitProgress(opts.OnProgress, runID, StepLoad, fmt.Sprintf("loaded %d cached resolutions", c.Len()), c.Stats())

	source, err := opts.OpenSource(ctx)
	if err != nil {
		return types.RunStats{RunID: runID}, fmt.Errorf("failed to open listing: %w", err)
	}

	r := resolver.New(c, opts.Provider, opts.Matcher,
		resolver.WithQualifier(opts.Qualifier),
		resolver.WithWorkers(opts.Workers),
		resolver.WithSearchTimeout(opts.SearchTimeout),
		resolver.WithLogger(logger),
	)

	stats, runErr := runAndClose(ctx, r, source, opts.MaxPages, logger)
	stats.RunID = runID
	emitProgress(opts.OnProgress, runID, StepResolve, fmt.Sprintf("resolved %d names with %d lookups", stats.Names, stats.Lookups), stats)

	var flushErr error
	if err := opts.Store.Save(context.WithoutCancel(ctx), c.Snapshot()); err != nil {
		flushErr = fmt.Errorf("failed to flush resolution store: %w", err)
	} else {
		emitProgress(opts.OnProgress, runID, StepFlush, fmt.Sprintf("flushed %d resolutions", c.Len()), c.Stats())
	}

	cs := c.Stats()
	logger.InfoContext(ctx, "resolution run finished",
		"names", stats.Names, "lookups", stats.Lookups, "valid", cs.Valid, "absent", cs.Absent,
		"hit_rate", fmt.Sprintf("%.2f", cs.HitRate()))
	return stats, errors.Join(runErr, flushErr)
}

func runAndClose(ctx context.Context, r *resolver.Resolver, source resolver.ListingSource, maxPages int, logger *slog.Logger) (types.RunStats, error) {
	defer func() {
		if err := source.Close(); err != nil {
			logger.WarnContext(ctx, "failed to close listing session", "error", err)
		}
	}()
	return r.Run(ctx, source, maxPages)
}

// ConsolidationOptions holds configuration for a consolidation run
type ConsolidationOptions struct {
	Resolutions store.KV[*string]
	Identifiers store.KV[string]
	Extractor   consolidate.UIDExtractor
	Logger      *slog.Logger
	OnProgress  ProgressCallback
}

// RunConsolidation merges resolved links into the identifier store, saving
// only when something was added.
func RunConsolidation(ctx context.Context, opts ConsolidationOptions) (types.MergeResult, error) {
	logger := loggerOrDefault(opts.Logger)

	intermediate := loadOrEmpty(ctx, opts.Resolutions, logger, store.Resolutions.Name)
	destination, err := loadForUpdate(ctx, opts.Identifiers, logger, store.Identifiers.Name)
	if err != nil {
		return types.MergeResult{}, err
	}

	result := consolidate.Merge(intermediate, destination, opts.Extractor, logger)
	emitProgress(opts.OnProgress, "", StepMerge, fmt.Sprintf("added %d identifiers", result.Added), result)

	if result.Added == 0 {
		logger.InfoContext(ctx, "no new identifiers", "processed", result.Processed)
		return result, nil
	}
	if err := opts.Identifiers.Save(ctx, destination); err != nil {
		return result, fmt.Errorf("failed to save identifier store: %w", err)
	}
	logger.InfoContext(ctx, "identifier store updated", "added", result.Added, "total", len(destination))
	return result, nil
}

// SnapshotOptions holds configuration for a snapshot run
type SnapshotOptions struct {
	Store      store.KV[string]
	Source     snapshot.Source
	Logger     *slog.Logger
	OnProgress ProgressCallback
}

// RunSnapshot refreshes the faculty research store from the directory.
func RunSnapshot(ctx context.Context, opts SnapshotOptions) (types.SnapshotResult, error) {
	w := snapshot.NewDiffWriter(opts.Store, loggerOrDefault(opts.Logger))
	result, err := w.Apply(ctx, opts.Source)
	if err != nil {
		return result, err
	}
	emitProgress(opts.OnProgress, "", StepFetch, fmt.Sprintf("snapshot has %d entries", result.Entries), result)
	return result, nil
}

// PendingNames returns the stored names whose link is not Valid, sorted by name.
func PendingNames(ctx context.Context, kv store.KV[*string], matcher *directory.Matcher, logger *slog.Logger) []types.ResolutionEntry {
	logger = loggerOrDefault(logger)
	c := cache.New(matcher, loadOrEmpty(ctx, kv, logger, store.Resolutions.Name), logger)

	var pending []types.ResolutionEntry
	for _, e := range c.Entries() {
		if e.State != types.Valid {
			pending = append(pending, e)
		}
	}
	return pending
}

// LookupResult is everything the stores know about one name.
type LookupResult struct {
	Name  string
	UID   string
	Entry *types.ResolutionEntry
}

// Lookup reports the identifier and resolution state of name.
func Lookup(ctx context.Context, stores *store.Stores, matcher *directory.Matcher, name string, logger *slog.Logger) LookupResult {
	logger = loggerOrDefault(logger)
	result := LookupResult{Name: name}

	ids := loadOrEmpty(ctx, stores.Identifiers, logger, store.Identifiers.Name)
	result.UID = ids[name]

	c := cache.New(matcher, loadOrEmpty(ctx, stores.Resolutions, logger, store.Resolutions.Name), logger)
	if entry, ok := c.Entry(name); ok {
		result.Entry = &entry
	}
	return result
}
