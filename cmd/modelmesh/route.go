package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrel-run/modelmesh/pkg/telemetry"
)

func routeCmd() *cobra.Command {
	var task string
	var priority string
	var maxLatencyMS int64
	var requireStructured bool
	var requireStreaming bool

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Show which backend the Model Router would pick for a given request profile",
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

			r := newRouter(cfg, store)

			required := map[string]bool{}
			if requireStructured {
				required["structured_output"] = true
			}
			if requireStreaming {
				required["streaming"] = true
			}

			selection := r.Select(telemetry.RouterConfig{
				Task:                 telemetry.Task(task),
				Priority:             telemetry.Priority(priority),
				MaxLatencyMS:         maxLatencyMS,
				RequiredCapabilities: required,
			})

			fmt.Printf("selected: %s (score %.2f)\n", selection.Selected, selection.Score)
			fmt.Printf("reason:   %s\n", selection.Reason)
			for _, alt := range selection.Alternatives {
				fmt.Printf("alt:      %s (score %.2f) — %s\n", alt.Backend, alt.Score, alt.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&task, "task", string(telemetry.TaskChat), "task type (classification, summarization, reasoning, extraction, chat, other)")
	cmd.Flags().StringVar(&priority, "priority", string(telemetry.PriorityBalanced), "priority (cost, quality, speed, balanced)")
	cmd.Flags().Int64Var(&maxLatencyMS, "max-latency-ms", 0, "maximum acceptable average latency (0 disables the gate)")
	cmd.Flags().BoolVar(&requireStructured, "require-structured-output", false, "require structured-output support")
	cmd.Flags().BoolVar(&requireStreaming, "require-streaming", false, "require streaming support")

	return cmd
}
