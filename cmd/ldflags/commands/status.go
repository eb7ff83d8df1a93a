package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goflagship/internal/cli"
	"github.com/TimurManjosov/goflagship/internal/datasource"
	"github.com/TimurManjosov/goflagship/internal/datastore/memstore"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report Data Source status",
	Long: `Report whether the local test-data file parses cleanly and how
many flags/segments it holds, or the live status of a remote
ldflags-service instance.

Examples:
  ldflags status --data flags.yaml
  ldflags status --env prod`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dataFile != "" {
			store := memstore.New()
			if err := datasource.NewFile(dataFile, store).Start(context.Background()); err != nil {
				return fmt.Errorf("load test data: %w", err)
			}
			flags, _ := store.All(context.Background(), ldmodel.KindFlag)
			segments, _ := store.All(context.Background(), ldmodel.KindSegment)
			if !quiet {
				fmt.Printf("data file: %s\nflags: %d\nsegments: %d\n", dataFile, len(flags), len(segments))
			}
			return nil
		}

		envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		result, err := remoteStatus(envCfg)
		if err != nil {
			return fmt.Errorf("status request failed: %w", err)
		}
		if !quiet {
			fmt.Printf("%v\n", result)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
