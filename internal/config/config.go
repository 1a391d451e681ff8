// Package config loads pipeline settings from an optional YAML file and the
// environment. Command-line flags are layered on top by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shpitdev/ensembl-homology-pipeline/internal/ensembl"
)

// Config holds the homology pipeline configuration.
type Config struct {
	Ensembl EnsemblConfig `yaml:"ensembl"`
	Batch   BatchConfig   `yaml:"batch"`
	Table   TableConfig   `yaml:"table"`
	Logging LoggingConfig `yaml:"logging"`
	Journal JournalConfig `yaml:"journal"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// EnsemblConfig holds remote service settings.
type EnsemblConfig struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
}

// BatchConfig holds per-row execution settings.
type BatchConfig struct {
	Workers        int           `yaml:"workers"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"` // 0 disables
}

// TableConfig describes the input and output tables.
type TableConfig struct {
	Column  string `yaml:"column"`
	Sheet   string `yaml:"sheet"`
	NoIndex bool   `yaml:"no_index"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // prod, local, dev
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// JournalConfig enables the SQLite run journal when Path is set.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig enables the Prometheus textfile export when Textfile is set.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Defaults.
const (
	DefaultWorkers        = 1
	DefaultRequestTimeout = 30 * time.Second
	DefaultColumn         = "gene_ids"
	DefaultEnv            = "local"
)

// Load reads the YAML file at path (if non-empty), applies environment
// overrides and fills defaults. The result is not validated so callers can
// layer flags on top first.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyEnv overrides fields from ENSEMBL_BASE_URL, WORKERS, REQUEST_TIMEOUT,
// RATE_LIMIT_RPS, LOG_LEVEL and ENV when they are set.
func (c *Config) ApplyEnv() error {
	c.Ensembl.BaseURL = envString("ENSEMBL_BASE_URL", c.Ensembl.BaseURL)
	c.Logging.Level = envString("LOG_LEVEL", c.Logging.Level)
	c.Logging.Env = envString("ENV", c.Logging.Env)

	workers, err := envInt("WORKERS", c.Batch.Workers)
	if err != nil {
		return err
	}
	requestTimeout, err := envDuration("REQUEST_TIMEOUT", c.Batch.RequestTimeout)
	if err != nil {
		return err
	}
	rateLimitRPS, err := envFloat("RATE_LIMIT_RPS", c.Batch.RateLimitRPS)
	if err != nil {
		return err
	}
	c.Batch.Workers = workers
	c.Batch.RequestTimeout = requestTimeout
	c.Batch.RateLimitRPS = rateLimitRPS
	return nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Ensembl.BaseURL == "" {
		c.Ensembl.BaseURL = ensembl.DefaultBaseURL
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = DefaultWorkers
	}
	if c.Batch.RequestTimeout <= 0 {
		c.Batch.RequestTimeout = DefaultRequestTimeout
	}
	if strings.TrimSpace(c.Table.Column) == "" {
		c.Table.Column = DefaultColumn
	}
	if c.Logging.Env == "" {
		c.Logging.Env = DefaultEnv
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Batch.RequestTimeout <= 0 {
		return fmt.Errorf("batch.request_timeout must be positive, got %s", c.Batch.RequestTimeout)
	}
	if c.Batch.RateLimitRPS < 0 {
		return fmt.Errorf("batch.rate_limit_rps must not be negative, got %g", c.Batch.RateLimitRPS)
	}
	if strings.TrimSpace(c.Table.Column) == "" {
		return fmt.Errorf("table.column is required")
	}
	switch c.Logging.Env {
	case "prod", "local", "dev":
	default:
		return fmt.Errorf("logging.env must be one of prod, local, dev, got %q", c.Logging.Env)
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

func envString(varName string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
