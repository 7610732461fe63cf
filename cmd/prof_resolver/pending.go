package main

import (
	"github.com/spf13/cobra"

	"github.com/Atypics3/About-My-Professor/internal/observability"
	"github.com/Atypics3/About-My-Professor/internal/pipeline"
)

var pendingCommand = &cobra.Command{
	Use:   "pending",
	Short: "List names that still lack a valid directory link",
	Long:  "Lists every name in the resolution store whose link is missing or points outside the campus directory. These names are searched again on the next resolve run.",
	RunE:  runPendingCmd,
}

func init() {
	rootCmd.AddCommand(pendingCommand)
}

func runPendingCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	ctx := cmd.Context()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	pending := pipeline.PendingNames(ctx, stores.Resolutions, newMatcher(cfg), logger)
	observability.NewPrinter(cmd.OutOrStdout()).PrintPending(pending)
	return nil
}
