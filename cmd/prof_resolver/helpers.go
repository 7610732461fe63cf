package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Atypics3/About-My-Professor/internal/config"
	"github.com/Atypics3/About-My-Professor/internal/directory"
	"github.com/Atypics3/About-My-Professor/internal/observability"
	"github.com/Atypics3/About-My-Professor/internal/resolver"
	"github.com/Atypics3/About-My-Professor/internal/search"
	"github.com/Atypics3/About-My-Professor/internal/store"
)

// loadConfig resolves the config file, defaults and environment, then applies --verbose.
func loadConfig() (config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// newLogger writes structured logs to the command's error stream.
func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	return observability.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
}

// signalContext is cancelled on SIGINT or SIGTERM so runs can flush and exit.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store.Stores, error) {
	stores, err := store.Open(ctx, store.Options{
		Backend:     cfg.Store.Backend,
		Dir:         cfg.Store.Dir,
		SQLitePath:  cfg.Store.SQLitePath,
		DatabaseURL: cfg.Store.DatabaseURL,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	return stores, nil
}

func newMatcher(cfg config.Config) *directory.Matcher {
	return directory.NewMatcher(directory.Options{
		Host:        cfg.Directory.Host,
		UIDParam:    cfg.Directory.UIDParam,
		DetailPaths: cfg.Directory.DetailPaths,
		Window:      cfg.Directory.Window,
	})
}

func newProvider(cfg config.Config, logger *slog.Logger) (resolver.SearchProvider, error) {
	opts := []search.Option{
		search.WithLogger(logger),
		search.WithInterval(cfg.SearchInterval()),
	}
	switch cfg.Search.Provider {
	case config.ProviderBrave:
		key := cfg.Search.BraveAPIKey
		if key == "" {
			key = search.LoadBraveAPIKey()
		}
		if key == "" {
			return nil, fmt.Errorf("brave provider requires %s or ~/.brave", config.EnvBraveAPIKey)
		}
		return search.NewBrave(key, opts...), nil
	default:
		return search.NewDuckDuckGo(opts...), nil
	}
}
