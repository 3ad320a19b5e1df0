package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration: backend credentials, the
// backend/router/rate-limit profile, and the working directory telemetry
// and checkpoint files are persisted under.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	DeepSeekAPIKey  string

	Backends  *BackendsConfig
	RateLimit RateLimitDefaults
	Cache     CacheConfig

	ConfigDir string
	WorkDir   string
}

// CacheConfig selects and configures the CacheAdapter. A remote cache is
// used only when both URL and token are set; otherwise the in-process
// cache is used.
type CacheConfig struct {
	RemoteURL   string
	RemoteToken string
}

// UseRemote reports whether both remote cache credentials are present.
func (c CacheConfig) UseRemote() bool {
	return c.RemoteURL != "" && c.RemoteToken != ""
}

// FileConfig represents the structure of ~/.modelmesh/config.yaml.
type FileConfig struct {
	APIKeys APIKeysConfig `yaml:"api_keys"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
	DeepSeek  string `yaml:"deepseek"`
}

// Load reads configuration from config files and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return load(configDir, filepath.Join(configDir, "backends.yaml"))
}

// LoadWithBackendsFile loads config with a specific backend descriptor file.
func LoadWithBackendsFile(backendsPath string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return load(configDir, backendsPath)
}

func load(configDir, backendsPath string) (*Config, error) {
	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		DeepSeekAPIKey:  getEnvOrDefault("DEEPSEEK_API_KEY", fileConfig.APIKeys.DeepSeek),
		ConfigDir:       configDir,
		WorkDir:         getEnvOrDefault("MODELMESH_WORK_DIR", configDir),
		Cache: CacheConfig{
			RemoteURL:   os.Getenv("REMOTE_CACHE_URL"),
			RemoteToken: os.Getenv("REMOTE_CACHE_TOKEN"),
		},
	}

	if _, err := os.Stat(backendsPath); err == nil {
		backends, err := LoadBackendsConfig(backendsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load backends config: %w", err)
		}
		cfg.Backends = backends
	} else {
		cfg.Backends = DefaultBackendsConfig()
	}

	cfg.RateLimit = RateLimitDefaults{
		MaxRequests:   getEnvIntOrDefault("RATE_LIMIT_MAX_REQUESTS", cfg.Backends.RateLimit.MaxRequests),
		WindowSeconds: getEnvIntOrDefault("RATE_LIMIT_WINDOW_SECONDS", cfg.Backends.RateLimit.WindowSeconds),
	}

	return cfg, nil
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "deepseek":
		return c.DeepSeekAPIKey != ""
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

// getEnvIntOrDefault parses an integer environment variable, falling back
// to defaultValue if unset or malformed.
func getEnvIntOrDefault(envVar string, defaultValue int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultValue
	}
	var parsed int
	if _, err := fmt.Sscanf(val, "%d", &parsed); err != nil {
		return defaultValue
	}
	return parsed
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".modelmesh")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
