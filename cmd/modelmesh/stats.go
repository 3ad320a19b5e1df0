package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-run/modelmesh/pkg/stats"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the router stats projection (summary, usage, distributions, performance, cost, timeline, comparison) as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, err := newTelemetryStore(cfg)
			if err != nil {
				return fmt.Errorf("failed to open telemetry store: %w", err)
			}
			defer store.Close()

			snap := stats.Project(store)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}
