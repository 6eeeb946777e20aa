// Package config loads engine configuration from defaults, an optional YAML
// file and MATCH_* environment variables, in increasing priority.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/m-mizutani/goerr/v2"
)

// EnvPrefix prefixes every environment variable the engine reads.
const EnvPrefix = "MATCH_"

// PathEnvVar names an explicit config file.
const PathEnvVar = EnvPrefix + "CONFIG"

// Config is the engine configuration.
type Config struct {
	Log    LogConfig    `koanf:"log"`
	Server ServerConfig `koanf:"server"`
	Store  StoreConfig  `koanf:"store"`
	LLM    LLMConfig    `koanf:"llm"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level      string `koanf:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format     string `koanf:"format" validate:"oneof=console json"`
	Stacktrace bool   `koanf:"stacktrace"`
}

// ServerConfig controls the JSON-RPC engine loop.
type ServerConfig struct {
	MaxConcurrent   int `koanf:"max_concurrent" validate:"min=1,max=256"`
	ReportCacheSize int `koanf:"report_cache_size" validate:"min=0"`
}

// StoreConfig controls the SQLite profile and history stores.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables persistence.
	Path string `koanf:"path"`
}

// LLMConfig controls the advice generator's provider.
type LLMConfig struct {
	// Provider is "openai", "mock" (canned advice, for local runs) or ""
	// (disabled).
	Provider          string        `koanf:"provider" validate:"omitempty,oneof=openai mock"`
	APIKey            string        `koanf:"api_key" validate:"required_if=Provider openai"`
	Model             string        `koanf:"model"`
	BaseURL           string        `koanf:"base_url" validate:"omitempty,url"`
	Timeout           time.Duration `koanf:"timeout" validate:"min=0"`
	RequestsPerMinute int           `koanf:"requests_per_minute" validate:"min=1"`
	Burst             int           `koanf:"burst" validate:"min=1"`
	MaxRetries        int           `koanf:"max_retries" validate:"min=0,max=10"`
	// FaultErrorRate makes the provider fail this share of calls. Staging only.
	FaultErrorRate    float64       `koanf:"fault_error_rate" validate:"min=0,max=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			MaxConcurrent:   1,
			ReportCacheSize: 512,
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
		},
		LLM: LLMConfig{
			Timeout:           30 * time.Second,
			RequestsPerMinute: 60,
			Burst:             5,
			MaxRetries:        2,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".personamatch", "engine.db")
}

// Load builds the configuration. path may be empty, in which case
// MATCH_CONFIG is consulted; a missing file is not an error only when no path
// was requested.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, goerr.Wrap(err, "failed to load defaults")
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, goerr.Wrap(err, "failed to load config file", goerr.V("path", path))
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, goerr.Wrap(err, "failed to load environment variables")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps MATCH_LLM_API_KEY to llm.api_key. The first segment after
// the prefix selects the section; the rest is the field name.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + field
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return goerr.Wrap(err, "configuration validation failed")
	}
	return nil
}
