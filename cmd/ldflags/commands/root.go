package commands

import (
	"github.com/spf13/cobra"
)

var (
	baseURL string
	apiKey  string
	env     string
	format  string
	dataFile string
	quiet   bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ldflags",
	Short: "CLI for evaluating feature flags with the SDK",
	Long: `ldflags drives the flag evaluation SDK from the command line,
either against a local file-based test-data source or, in remote mode,
against a running ldflags-service instance.

Examples:
  ldflags eval my-flag --context-key user-123 --data flags.yaml
  ldflags eval my-flag --context-key user-123 --env prod --base-url https://flags.example.com --api-key KEY
  ldflags status --data flags.yaml`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of a running ldflags-service (remote mode)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Bearer token for remote mode")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Named environment from the CLI config file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data", "", "Local flags/segments test-data file (offline mode)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}
