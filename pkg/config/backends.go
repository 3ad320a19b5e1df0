package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kestrel-run/modelmesh/pkg/telemetry"
)

// BackendsConfig holds the static backend profiles the Model Router and
// Telemetry Store are seeded from, plus the well-known fallback used when
// the telemetry table is empty.
type BackendsConfig struct {
	Backends       []telemetry.BackendDescriptor `yaml:"backends"`
	DefaultBackend string                        `yaml:"default_backend"`
	Router         RouterDefaults                `yaml:"router,omitempty"`
	RateLimit      RateLimitDefaults             `yaml:"rate_limit,omitempty"`
}

// RouterDefaults are applied to a RouterConfig when a caller omits a field.
type RouterDefaults struct {
	Priority     telemetry.Priority `yaml:"priority,omitempty"`
	MaxLatencyMS int64              `yaml:"max_latency_ms,omitempty"`
}

// RateLimitDefaults are the fallback window/quota before env overlay.
type RateLimitDefaults struct {
	MaxRequests   int `yaml:"max_requests,omitempty"`
	WindowSeconds int `yaml:"window_seconds,omitempty"`
}

// LoadBackendsConfig reads backend descriptors from a YAML file.
func LoadBackendsConfig(path string) (*BackendsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg BackendsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyBackendsDefaults(&cfg)
	return &cfg, nil
}

// DefaultBackendsConfig returns the built-in backend descriptors for the
// four wired adapters, used when no backends.yaml is present.
func DefaultBackendsConfig() *BackendsConfig {
	cfg := &BackendsConfig{
		Backends: []telemetry.BackendDescriptor{
			{
				Name:                     "anthropic",
				CapabilityTier:           telemetry.TierAdvanced,
				BaseCostPer1KTokens:      0.015,
				NominalMaxLatencyMS:      4000,
				SupportsStructuredOutput: true,
				SupportsStreaming:        true,
			},
			{
				Name:                     "openai",
				CapabilityTier:           telemetry.TierAdvanced,
				BaseCostPer1KTokens:      0.01,
				NominalMaxLatencyMS:      3000,
				SupportsStructuredOutput: true,
				SupportsStreaming:        true,
			},
			{
				Name:                     "google",
				CapabilityTier:           telemetry.TierStandard,
				BaseCostPer1KTokens:      0.007,
				NominalMaxLatencyMS:      3500,
				SupportsStructuredOutput: true,
				SupportsStreaming:        true,
			},
			{
				Name:                     "deepseek",
				CapabilityTier:           telemetry.TierReasoning,
				BaseCostPer1KTokens:      0.002,
				NominalMaxLatencyMS:      6000,
				SupportsStructuredOutput: true,
				SupportsStreaming:        true,
			},
		},
		DefaultBackend: "anthropic",
	}
	applyBackendsDefaults(cfg)
	return cfg
}

func applyBackendsDefaults(cfg *BackendsConfig) {
	if cfg == nil {
		return
	}
	if cfg.DefaultBackend == "" && len(cfg.Backends) > 0 {
		cfg.DefaultBackend = cfg.Backends[0].Name
	}
	if cfg.Router.Priority == "" {
		cfg.Router.Priority = telemetry.PriorityBalanced
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 100
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
}
