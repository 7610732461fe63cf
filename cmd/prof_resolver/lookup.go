package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Atypics3/About-My-Professor/internal/observability"
	"github.com/Atypics3/About-My-Professor/internal/pipeline"
)

var lookupCommand = &cobra.Command{
	Use:     "lookup <name>",
	Short:   "Show the uid and link state stored for one name",
	Example: `  prof_resolver lookup "Lee, K."`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runLookupCmd,
}

func init() {
	rootCmd.AddCommand(lookupCommand)
}

func runLookupCmd(cmd *cobra.Command, args []string) error {
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

	name := strings.Join(args, " ")
	result := pipeline.Lookup(ctx, stores, newMatcher(cfg), name, logger)
	observability.NewPrinter(cmd.OutOrStdout()).PrintLookup(result.Name, result.UID, result.Entry)
	return nil
}
