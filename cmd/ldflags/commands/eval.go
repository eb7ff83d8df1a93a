package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goflagship/internal/cli"
)

var contextKey string

var evalCmd = &cobra.Command{
	Use:   "eval <flagKey>",
	Short: "Evaluate a flag for a context",
	Long: `Evaluate a single flag, either against a local test-data file
(--data) or a running ldflags-service instance (--base-url/--api-key).

Examples:
  ldflags eval my-flag --context-key user-123 --data flags.yaml
  ldflags eval my-flag --context-key user-123 --env prod`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flagKey := args[0]
		if contextKey == "" {
			return fmt.Errorf("--context-key is required")
		}

		var row cli.EvalRow
		var err error
		if dataFile != "" {
			row, err = evalLocal(dataFile, flagKey, contextKey, nil)
		} else {
			envCfg, _, cfgErr := cli.GetEnvConfig(env, baseURL, apiKey)
			if cfgErr != nil {
				return fmt.Errorf("configuration error: %w", cfgErr)
			}
			row, err = evalRemote(envCfg, flagKey, contextKey, nil)
		}
		if err != nil {
			return fmt.Errorf("evaluate failed: %w", err)
		}

		if quiet {
			return nil
		}
		return cli.PrintEvalRow(row, cli.OutputFormat(format))
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Evaluate every flag in a local test-data file for a context",
	Long: `Evaluate every flag in the --data test-data file (offline only).

Examples:
  ldflags all --context-key user-123 --data flags.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dataFile == "" {
			return fmt.Errorf("--data is required for the all command")
		}
		if contextKey == "" {
			return fmt.Errorf("--context-key is required")
		}

		rows, err := allFlagsLocal(dataFile, contextKey)
		if err != nil {
			return fmt.Errorf("evaluate failed: %w", err)
		}

		if quiet {
			return nil
		}
		return cli.PrintEvalRows(rows, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(allCmd)

	evalCmd.Flags().StringVar(&contextKey, "context-key", "", "Context key to evaluate against")
	allCmd.Flags().StringVar(&contextKey, "context-key", "", "Context key to evaluate against")
}
