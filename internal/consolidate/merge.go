// Package consolidate promotes validated resolutions into the identifier store.
package consolidate

import (
	"log/slog"
	"sort"

	"github.com/Atypics3/About-My-Professor/internal/parsing"
	"github.com/Atypics3/About-My-Professor/internal/types"
)

// UIDExtractor pulls the directory identifier out of a profile link.
type UIDExtractor interface {
	ExtractUID(link string) (string, bool)
}

// Merge adds an identifier for every intermediate entry whose name is not yet in
// destination and whose link carries a uid. Existing destination entries are never
// overwritten, so running Merge twice on the same inputs adds nothing the second time.
func Merge(intermediate types.ResolutionStore, destination types.IdentifierStore, extractor UIDExtractor, logger *slog.Logger) types.MergeResult {
	if logger == nil {
		logger = slog.Default()
	}

	names := make([]string, 0, len(intermediate))
	for name := range intermediate {
		names = append(names, name)
	}
	sort.Strings(names)

	var result types.MergeResult
	for _, name := range names {
		result.Processed++

		if _, exists := destination[name]; exists {
			result.Skipped++
			continue
		}
		if parsing.IsPlaceholder(name) {
			result.Skipped++
			continue
		}

		link := intermediate[name]
		if link == nil {
			result.Skipped++
			continue
		}
		uid, ok := extractor.ExtractUID(*link)
		if !ok {
			logger.Debug("no uid in link", "name", name, "link", *link)
			result.Skipped++
			continue
		}

		destination[name] = uid
		result.Added++
		logger.Debug("identifier added", "name", name, "uid", uid)
	}
	return result
}
