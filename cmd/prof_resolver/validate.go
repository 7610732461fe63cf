package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Atypics3/About-My-Professor/internal/schemas"
	"github.com/Atypics3/About-My-Professor/internal/store"
)

var validateCommand = &cobra.Command{
	Use:   "validate",
	Short: "Validate the JSON store files against their schemas",
	Long:  "Checks prof_link.json, prof_uid.json and prof_research_topics.json in the store directory. Missing files are reported and skipped.",
	RunE:  runValidateCmd,
}

func init() {
	rootCmd.AddCommand(validateCommand)
}

func runValidateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Backend != store.BackendJSON {
		return fmt.Errorf("validate only applies to the json store backend (configured: %s)", cfg.Store.Backend)
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, b := range []store.Bucket{store.Resolutions, store.Identifiers, store.Snapshots} {
		path := filepath.Join(cfg.Store.Dir, b.Name+".json")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(out, "%s: not found, skipped\n", path)
			continue
		}
		if err := schemas.ValidateFile(b.Schema, path); err != nil {
			failed++
			fmt.Fprintf(out, "%s: Validation failed\n%v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s: Validation passed\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("%d store file(s) failed validation", failed)
	}
	return nil
}
