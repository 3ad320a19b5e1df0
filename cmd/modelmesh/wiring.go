package main

import (
	"fmt"

	"github.com/kestrel-run/modelmesh/pkg/adapter"
	"github.com/kestrel-run/modelmesh/pkg/config"
	"github.com/kestrel-run/modelmesh/pkg/router"
	"github.com/kestrel-run/modelmesh/pkg/telemetry"
)

// createAdapters builds one Adapter per backend with a configured API key,
// plus a mock adapter that is always available for local runs and tests.
func createAdapters(cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter)

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
		}
		adapters["anthropic"] = a
	}
	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai adapter: %w", err)
		}
		adapters["openai"] = a
	}
	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google adapter: %w", err)
		}
		adapters["google"] = a
	}
	if cfg.DeepSeekAPIKey != "" {
		a, err := adapter.NewDeepSeekAdapter(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek adapter: %w", err)
		}
		adapters["deepseek"] = a
	}

	adapters["mock"] = adapter.NewMockAdapter()

	return adapters, nil
}

// newTelemetryStore opens the Telemetry Store under cfg.WorkDir, seeded
// from cfg.Backends.
func newTelemetryStore(cfg *config.Config) (*telemetry.Store, error) {
	return telemetry.NewStore(cfg.WorkDir, cfg.Backends.Backends)
}

// newRouter builds a Router over store, with the default backend from
// cfg.Backends and descriptors for scoring.
func newRouter(cfg *config.Config, store *telemetry.Store) *router.Router {
	return router.NewRouter(store, cfg.Backends.Backends, router.WithDefaultBackend(cfg.Backends.DefaultBackend))
}
