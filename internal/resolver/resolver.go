// Package resolver maps extracted instructor names to campus-directory profile links.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Atypics3/About-My-Professor/internal/cache"
	"github.com/Atypics3/About-My-Professor/internal/directory"
	"github.com/Atypics3/About-My-Professor/internal/parsing"
	"github.com/Atypics3/About-My-Professor/internal/search"
	"github.com/Atypics3/About-My-Professor/internal/types"
)

// DefaultSearchTimeout bounds a single search call.
const DefaultSearchTimeout = 10 * time.Second

// SearchProvider returns candidate URLs for a query, best first.
// Errors matching search.ErrUnreachable abort the run; any other error only fails one lookup.
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// ListingSource pages through the course listing.
type ListingSource interface {
	LoadPage(ctx context.Context) error
	PanelTexts(ctx context.Context) ([]string, error)
	NextPage(ctx context.Context) (bool, error)
	Close() error
}

// Resolver resolves names through the cache, falling back to the search provider.
type Resolver struct {
	cache     *cache.Cache
	provider  SearchProvider
	matcher   *directory.Matcher
	qualifier string
	workers   int
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithQualifier sets the institution qualifier appended to each query.
func WithQualifier(q string) Option {
	return func(r *Resolver) { r.qualifier = q }
}

// WithWorkers sets how many lookups may run at once.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithSearchTimeout sets the per-call search timeout.
func WithSearchTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets a logger for the resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// New creates a Resolver that owns no state beyond the injected cache.
func New(c *cache.Cache, provider SearchProvider, matcher *directory.Matcher, opts ...Option) *Resolver {
	r := &Resolver{
		cache:     c,
		provider:  provider,
		matcher:   matcher,
		qualifier: parsing.DefaultQualifier,
		workers:   1,
		timeout:   DefaultSearchTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveNames resolves every name that is not already fresh in the cache.
// Each claimed name costs exactly one search call. Lookup faults are recorded
// as Absent; an unreachable provider or a cancelled context stops the batch and
// is returned, leaving every outcome recorded so far in the cache.
func (r *Resolver) ResolveNames(ctx context.Context, names []string) (types.RunStats, error) {
	var (
		stats   types.RunStats
		lookups types.RunStats
		mu      sync.Mutex
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, name := range names {
		if gCtx.Err() != nil {
			break
		}
		stats.Names++
		claim := r.cache.Claim(name)
		if claim == cache.Fresh {
			stats.CacheHits++
			r.logger.DebugContext(ctx, "cache hit", "name", name)
		}
		if claim != cache.Claimed {
			continue
		}

		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			outcome, err := r.lookup(gCtx, name)
			mu.Lock()
			defer mu.Unlock()
			lookups.Add(outcome)
			return err
		})
	}

	err := g.Wait()
	stats.Add(lookups)
	if err != nil {
		return stats, err
	}
	return stats, ctx.Err()
}

// lookup performs one search for name and records the outcome.
func (r *Resolver) lookup(ctx context.Context, name string) (types.RunStats, error) {
	stats := types.RunStats{Lookups: 1}
	query := parsing.SearchQuery(name, r.qualifier)

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	candidates, err := r.provider.Search(callCtx, query)
	cancel()

	if err != nil {
		if errors.Is(err, search.ErrUnreachable) {
			return stats, fmt.Errorf("resolving %q: %w", name, err)
		}
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		r.logger.WarnContext(ctx, "lookup failed, recording absent", "name", name, "query", query, "error", err)
		r.cache.Record(name, "", types.Absent)
		stats.Faults++
		stats.Absent++
		return stats, nil
	}

	link, state := r.matcher.SelectCandidate(candidates)
	r.cache.Record(name, link, state)

	switch state {
	case types.Valid:
		stats.Valid++
		r.logger.InfoContext(ctx, "resolved", "name", name, "link", link)
	default:
		stats.Absent++
		r.logger.InfoContext(ctx, "no directory profile in results", "name", name, "query", query, "candidates", len(candidates))
	}
	return stats, nil
}

// Run pages through source and resolves every instructor name it lists.
// Pagination is sequential; maxPages <= 0 means no page limit.
func (r *Resolver) Run(ctx context.Context, source ListingSource, maxPages int) (types.RunStats, error) {
	var total types.RunStats

	if err := source.LoadPage(ctx); err != nil {
		return total, fmt.Errorf("failed to load listing: %w", err)
	}

	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		panels, err := source.PanelTexts(ctx)
		if err != nil {
			return total, fmt.Errorf("failed to read panels on page %d: %w", page, err)
		}
		total.Pages++
		total.Panels += len(panels)

		names := make([]string, 0, len(panels))
		for i, text := range panels {
			extracted := parsing.ExtractNames(text)
			if len(extracted) == 0 {
				r.logger.DebugContext(ctx, "no instructor names in panel", "page", page, "panel", i)
				continue
			}
			names = append(names, extracted...)
		}

		stats, err := r.ResolveNames(ctx, names)
		total.Add(stats)
		if err != nil {
			return total, err
		}
		r.logger.InfoContext(ctx, "page resolved", "page", page, "panels", len(panels), "names", stats.Names, "lookups", stats.Lookups)

		more, err := source.NextPage(ctx)
		if err != nil {
			return total, fmt.Errorf("failed to advance past page %d: %w", page, err)
		}
		if !more {
			break
		}
	}
	return total, nil
}
