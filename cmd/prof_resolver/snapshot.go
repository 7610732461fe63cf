package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Atypics3/About-My-Professor/internal/fetch"
	"github.com/Atypics3/About-My-Professor/internal/observability"
	"github.com/Atypics3/About-My-Professor/internal/pipeline"
)

var snapshotCommand = &cobra.Command{
	Use:   "snapshot",
	Short: "Refresh the faculty research store from the science directory",
	Long: `Fetches the faculty directory and replaces the research store wholesale when
the fetched entries differ from the stored ones. An unchanged directory causes
no write; a page with no faculty cards is an error and leaves the store alone.`,
	RunE: runSnapshotCmd,
}

var snapshotURL string

const fetchRetryDelay = 500 * time.Millisecond

func init() {
	snapshotCommand.Flags().StringVar(&snapshotURL, "url", "", "Faculty directory URL (overrides config)")

	rootCmd.AddCommand(snapshotCommand)
}

func runSnapshotCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if snapshotURL != "" {
		cfg.Faculty.URL = snapshotURL
	}
	logger := newLogger(cmd, cfg)
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.Timeout = cfg.FacultyTimeout()
	source := fetch.NewFacultyDirectory(cfg.Faculty.URL,
		fetch.WithFetchOptions(fetchOpts),
		fetch.WithRetry(uint(cfg.Faculty.Attempts), fetchRetryDelay),
		fetch.WithFacultyLogger(logger),
	)

	result, err := pipeline.RunSnapshot(ctx, pipeline.SnapshotOptions{
		Store:  stores.Snapshots,
		Source: source,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintSnapshotResult(result)
	return nil
}
