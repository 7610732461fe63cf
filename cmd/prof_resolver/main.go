// Package main provides the entry point for the professor directory resolver CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "prof_resolver",
	Short: "Resolve course instructors to campus directory profiles",
	Long: `prof_resolver scrapes the class-search listing for instructor names, resolves each
name to a campus directory profile link through a web search, and keeps the
resulting name -> uid and faculty research stores up to date.

Configuration can be loaded from a JSON, YAML or TOML file using --config.
BRAVE_API_KEY, DATABASE_URL and PROF_RESOLVER_STORE_DIR override file values.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a .json, .yaml or .toml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
