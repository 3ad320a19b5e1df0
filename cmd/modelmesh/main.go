package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-run/modelmesh/pkg/config"
)

var (
	backendsFile string
	aliases      *config.ModelAliases
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "modelmesh",
		Short: "LLM request-orchestration substrate: routing, caching, rate limiting, and chunked pipelines",
		Long: `modelmesh routes requests across LLM backends by live cost, latency, and
reliability telemetry rather than static rules, runs a moderation service on
top of that routing, and chunks oversize documents through a checkpointed,
resumable map/reduce pipeline.`,
	}

	rootCmd.PersistentFlags().StringVar(&backendsFile, "backends", "", "path to backends.yaml (defaults to ~/.modelmesh/backends.yaml, else the built-in profile)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(pipelineCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(modelsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if backendsFile != "" {
		cfg, err = config.LoadWithBackendsFile(backendsFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	aliases, _ = config.LoadAliasesWithFallback("configs/models.yaml")

	return cfg, nil
}
