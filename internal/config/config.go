// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/resume-editor/internal/llm"
)

// Defaults
const (
	DefaultPort                  = 8080
	DefaultMaxInFlightTransforms = 4
	DefaultTransformTimeout      = "45s"
)

// Config is loaded from a JSON or YAML file. All fields are optional; missing values
// use defaults or come from flags and the environment.
type Config struct {
	Port        int    `json:"port,omitempty" yaml:"port,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty"`           // Gemini API key
	Verbose     bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`

	// Transforms
	MaxInFlightTransforms int64  `json:"max_in_flight_transforms,omitempty" yaml:"max_in_flight_transforms,omitempty"`
	TransformTimeout      string `json:"transform_timeout,omitempty" yaml:"transform_timeout,omitempty"` // Go duration, e.g. "45s"
	ModelTier             string `json:"model_tier,omitempty" yaml:"model_tier,omitempty"`                // lite, standard or advanced; empty lets each command pick

	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"` // CORS origins; empty allows all
}

// LoadConfig loads configuration from a file. Files ending in .yaml or .yml are read
// as YAML, everything else as JSON.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.MaxInFlightTransforms < 0 {
		return fmt.Errorf("config error: 'max_in_flight_transforms' must be non-negative")
	}
	if c.TransformTimeout != "" {
		d, err := time.ParseDuration(c.TransformTimeout)
		if err != nil {
			return fmt.Errorf("config error: 'transform_timeout': %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("config error: 'transform_timeout' must be positive")
		}
	}
	if c.ModelTier == "" {
		return nil
	}
	if _, err := llm.ParseTier(c.ModelTier); err != nil {
		return fmt.Errorf("config error: 'model_tier': %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.MaxInFlightTransforms == 0 {
		result.MaxInFlightTransforms = defaults.MaxInFlightTransforms
	}
	if result.TransformTimeout == "" {
		result.TransformTimeout = defaults.TransformTimeout
	}
	if result.ModelTier == "" {
		result.ModelTier = defaults.ModelTier
	}
	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = defaults.AllowedOrigins
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                  DefaultPort,
		MaxInFlightTransforms: DefaultMaxInFlightTransforms,
		TransformTimeout:      DefaultTransformTimeout,
	}
}

// Timeout returns TransformTimeout as a duration, or the default when unset or invalid.
func (c *Config) Timeout() time.Duration {
	if d, err := time.ParseDuration(c.TransformTimeout); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultTransformTimeout)
	return d
}

// FromEnv fills empty secrets and connection settings from the environment.
func (c *Config) FromEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}
