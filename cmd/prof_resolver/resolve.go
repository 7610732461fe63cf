package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Atypics3/About-My-Professor/internal/fetch"
	"github.com/Atypics3/About-My-Professor/internal/observability"
	"github.com/Atypics3/About-My-Professor/internal/pipeline"
	"github.com/Atypics3/About-My-Professor/internal/resolver"
)

var resolveCommand = &cobra.Command{
	Use:   "resolve",
	Short: "Scrape the class listing and resolve instructor names to directory links",
	Long: `Pages through the class-search listing in a headless browser, extracts every
instructor name and resolves names missing from the resolution store with one
web search each. Progress is flushed to the store even when the run is
interrupted or the search provider becomes unreachable.

Requires Chrome/Chromium to be installed on the system.`,
	RunE: runResolveCmd,
}

var (
	resolveMaxPages    int
	resolveWorkers     int
	resolveTerm        string
	resolveShowBrowser bool
)

func init() {
	resolveCommand.Flags().IntVar(&resolveMaxPages, "max-pages", 0, "Maximum listing pages to visit (overrides config, 0 keeps config)")
	resolveCommand.Flags().IntVar(&resolveWorkers, "workers", 0, "Concurrent lookups (overrides config)")
	resolveCommand.Flags().StringVar(&resolveTerm, "term", "", "Term code, e.g. 2258 (overrides config)")
	resolveCommand.Flags().BoolVar(&resolveShowBrowser, "show-browser", false, "Run the browser with a visible window")

	rootCmd.AddCommand(resolveCommand)
}

func runResolveCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if resolveMaxPages > 0 {
		cfg.Listing.MaxPages = resolveMaxPages
	}
	if resolveWorkers > 0 {
		cfg.Search.Workers = resolveWorkers
	}
	if resolveTerm != "" {
		cfg.Listing.Term = resolveTerm
	}
	if resolveShowBrowser {
		cfg.Listing.ShowBrowser = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	listingOpts := fetch.ClassSearchOptions{
		URL:      cfg.Listing.URL,
		Term:     cfg.Listing.Term,
		PageSize: cfg.Listing.PageSize,
		Timeout:  cfg.ListingTimeout(),
		Headless: !cfg.Listing.ShowBrowser,
		Logger:   logger,
	}

	stats, err := pipeline.RunResolution(ctx, pipeline.ResolutionOptions{
		Store: stores.Resolutions,
		OpenSource: func(ctx context.Context) (resolver.ListingSource, error) {
			return fetch.OpenClassSearch(ctx, listingOpts)
		},
		Provider:      provider,
		Matcher:       newMatcher(cfg),
		Qualifier:     cfg.Search.Qualifier,
		Workers:       cfg.Search.Workers,
		SearchTimeout: cfg.SearchTimeout(),
		MaxPages:      cfg.Listing.MaxPages,
		Logger:        logger,
	})
	observability.NewPrinter(cmd.OutOrStdout()).PrintRunSummary(stats)
	if err != nil {
		return fmt.Errorf("resolution run failed: %w", err)
	}
	return nil
}
