// Package cache holds the in-memory name -> link resolution state for one run.
//
// Names whose state is not Valid stay eligible for re-resolution on every run
// until a Valid link is recorded; within a run each name is attempted at most once.
package cache

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/Atypics3/About-My-Professor/internal/parsing"
	"github.com/Atypics3/About-My-Professor/internal/types"
)

// Classifier decides the state of a persisted link when seeding the cache.
type Classifier interface {
	Classify(link string) types.LinkState
}

// Stats holds cache hit/miss statistics.
type Stats struct {
	Hits    int64
	Misses  int64
	Valid   int
	Invalid int
	Absent  int
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Cache is the single owner of resolution entries during a run.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]types.ResolutionEntry
	attempted map[string]bool
	hits      int64
	misses    int64
	logger    *slog.Logger
}

// New creates a cache seeded from the persisted resolution store.
// Null links seed as Absent; other links are classified.
func New(classifier Classifier, seed types.ResolutionStore, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		entries:   make(map[string]types.ResolutionEntry, len(seed)),
		attempted: make(map[string]bool),
		logger:    logger,
	}

	for name, link := range seed {
		if name == "" || parsing.IsPlaceholder(name) {
			logger.Warn("dropping placeholder entry from resolution store", "name", name)
			continue
		}
		entry := types.ResolutionEntry{Name: name, State: types.Absent}
		if link != nil && *link != "" {
			l := *link
			entry.Link = &l
			entry.State = classifier.Classify(l)
		}
		c.entries[name] = entry
	}
	return c
}

// IsFresh reports whether name already has a Valid entry and needs no lookup.
func (c *Cache) IsFresh(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[name]
	return ok && entry.State == types.Valid
}

// ClaimResult says whether a name needs a lookup and, if not, why.
type ClaimResult int

const (
	// Claimed means the caller must look the name up now.
	Claimed ClaimResult = iota
	// Fresh means the name already has a Valid entry; counted as a cache hit.
	Fresh
	// Attempted means the name was already claimed earlier in this run.
	Attempted
	// Rejected means the name is empty or a placeholder.
	Rejected
)

// Claim reserves name for a lookup in this run. Only Claimed requires a
// lookup; Fresh is the one outcome counted as a cache hit.
func (c *Cache) Claim(name string) ClaimResult {
	if name == "" || parsing.IsPlaceholder(name) {
		return Rejected
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[name]; ok && entry.State == types.Valid {
		c.hits++
		return Fresh
	}
	if c.attempted[name] {
		return Attempted
	}
	c.attempted[name] = true
	c.misses++
	return Claimed
}

// Record stores the outcome for name; the latest outcome wins, except that a
// non-Valid outcome never replaces a Valid entry. It reports whether the entry was written.
func (c *Cache) Record(name, link string, state types.LinkState) bool {
	if name == "" || parsing.IsPlaceholder(name) {
		c.logger.Warn("refusing to record placeholder name", "name", name)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[name]; ok && prev.State == types.Valid && state != types.Valid {
		c.logger.Debug("keeping valid entry", "name", name, "link", prev.LinkValue(), "rejected_state", state.String())
		return false
	}

	entry := types.ResolutionEntry{Name: name, State: state}
	if link != "" && state != types.Absent {
		entry.Link = &link
	}
	c.entries[name] = entry
	return true
}

// Entry returns the current entry for name.
func (c *Cache) Entry(name string) (types.ResolutionEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[name]
	return entry, ok
}

// Entries returns all entries sorted by name.
func (c *Cache) Entries() []types.ResolutionEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.ResolutionEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Snapshot materializes the current state for persistence.
func (c *Cache) Snapshot() types.ResolutionStore {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(types.ResolutionStore, len(c.entries))
	for name, entry := range c.entries {
		if entry.Link == nil {
			out[name] = nil
			continue
		}
		l := *entry.Link
		out[name] = &l
	}
	return out
}

// Len returns the number of cached names.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit/miss counters and the current state distribution.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses}
	for _, entry := range c.entries {
		switch entry.State {
		case types.Valid:
			s.Valid++
		case types.Invalid:
			s.Invalid++
		default:
			s.Absent++
		}
	}
	return s
}
