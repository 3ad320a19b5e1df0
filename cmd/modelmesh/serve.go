package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/kestrel-run/modelmesh/pkg/cache"
	"github.com/kestrel-run/modelmesh/pkg/moderation"
	"github.com/kestrel-run/modelmesh/pkg/ratelimit"
	"github.com/kestrel-run/modelmesh/pkg/stats"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the moderation HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			adapters, err := createAdapters(cfg)
			if err != nil {
				return fmt.Errorf("failed to create adapters: %w", err)
			}

			store, err := newTelemetryStore(cfg)
			if err != nil {
				return fmt.Errorf("failed to open telemetry store: %w", err)
			}
			defer store.Close()

			r := newRouter(cfg, store)

			cacheAdapter := cache.Select(cfg.Cache.RemoteURL, cfg.Cache.RemoteToken)
			limiter := ratelimit.New(cacheAdapter, "modelmesh")
			limits := ratelimit.Limits{
				MaxRequests:   cfg.RateLimit.MaxRequests,
				WindowSeconds: cfg.RateLimit.WindowSeconds,
			}

			srv := moderation.NewServer(adapters, r, store, limiter, limits, cacheAdapter)

			mux := http.NewServeMux()
			mux.Handle("/", srv.Handler())
			mux.Handle("/model-router/stats", stats.Handler(store))

			log.Printf("modelmesh listening on %s", addr)
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
