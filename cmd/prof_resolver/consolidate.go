package main

import (
	"github.com/spf13/cobra"

	"github.com/Atypics3/About-My-Professor/internal/observability"
	"github.com/Atypics3/About-My-Professor/internal/pipeline"
)

var consolidateCommand = &cobra.Command{
	Use:   "consolidate",
	Short: "Promote resolved links into the name -> uid store",
	Long: `Adds a uid for every resolved name that is not yet in the identifier store.
Existing identifiers are never overwritten, and the store is only written when
something was added.`,
	RunE: runConsolidateCmd,
}

func init() {
	rootCmd.AddCommand(consolidateCommand)
}

func runConsolidateCmd(cmd *cobra.Command, _ []string) error {
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

	result, err := pipeline.RunConsolidation(ctx, pipeline.ConsolidationOptions{
		Resolutions: stores.Resolutions,
		Identifiers: stores.Identifiers,
		Extractor:   newMatcher(cfg),
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintMergeResult(result)
	return nil
}
