// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Missing YAML keys keep their defaults, so an explicit 0 window is honoured
// while an absent one is not.
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	window := cfg.Reconcile.Self.WindowDays
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	Accounts      AccountsConfig      `yaml:"accounts"`
	Sources       SourcesConfig       `yaml:"sources"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ReconcileConfig holds the per-mode engine settings
type ReconcileConfig struct {
	Self  SelfConfig  `yaml:"self"`
	Cross CrossConfig `yaml:"cross"`
}

// SelfConfig holds settings for comparing a set against itself
type SelfConfig struct {
	WindowDays       int  `yaml:"window_days"`
	AskUpdateNonDups bool `yaml:"ask_update_non_dups"` // Offer payee/notes edits on rejected records
}

// CrossConfig holds settings for comparing primary against reference
type CrossConfig struct {
	LookbackDays      int    `yaml:"lookback_days"`
	LookaheadDays     int    `yaml:"lookahead_days"`
	AutoConfirmSingle bool   `yaml:"auto_confirm_single"`
	PrimaryOrigin     string `yaml:"primary_origin"`
}

// AccountsConfig holds the account synonym sets
type AccountsConfig struct {
	MapFile  string              `yaml:"map_file"` // Column-per-account CSV
	Synonyms map[string][]string `yaml:"synonyms"` // Canonical name -> display names
}

// SourcesConfig holds input and output locations
type SourcesConfig struct {
	PrimaryPath     string `yaml:"primary_path"`
	PrimaryFormat   string `yaml:"primary_format"`
	ReferencePath   string `yaml:"reference_path"`
	ReferenceFormat string `yaml:"reference_format"`
	OutputDir       string `yaml:"output_dir"`
	StartDate       string `yaml:"start_date"` // YYYY-MM-DD, optional
	EndDate         string `yaml:"end_date"`   // YYYY-MM-DD, optional
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds review server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when nothing overrides a value
func Default() *Config {
	return &Config{
		Reconcile: ReconcileConfig{
			Self: SelfConfig{WindowDays: 7},
			Cross: CrossConfig{
				LookbackDays:  1,
				LookaheadDays: 7,
				PrimaryOrigin: "plaid",
			},
		},
		Sources: SourcesConfig{
			PrimaryPath:     "input/lm_transactions.csv",
			PrimaryFormat:   "lunchmoney",
			ReferencePath:   "input/transactions.csv",
			ReferenceFormat: "mint",
			OutputDir:       "output",
		},
		Storage: StorageConfig{DatabasePath: "reconcile.db"},
		API: APIConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECONCILE_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := Default()

	cfg.Storage.DatabasePath = getEnv("RECONCILE_DB_PATH", cfg.Storage.DatabasePath)
	cfg.Reconcile.Self.WindowDays = getEnvInt("RECONCILE_WINDOW_DAYS", cfg.Reconcile.Self.WindowDays)
	cfg.Reconcile.Self.AskUpdateNonDups = getEnvBool("RECONCILE_ASK_UPDATE_NON_DUPS", false)
	cfg.Reconcile.Cross.LookbackDays = getEnvInt("RECONCILE_LOOKBACK_DAYS", cfg.Reconcile.Cross.LookbackDays)
	cfg.Reconcile.Cross.LookaheadDays = getEnvInt("RECONCILE_LOOKAHEAD_DAYS", cfg.Reconcile.Cross.LookaheadDays)
	cfg.Reconcile.Cross.PrimaryOrigin = getEnv("RECONCILE_PRIMARY_ORIGIN", cfg.Reconcile.Cross.PrimaryOrigin)

	cfg.Accounts.MapFile = getEnv("RECONCILE_ACCOUNT_MAP", "")

	cfg.Sources.PrimaryPath = getEnv("RECONCILE_PRIMARY_PATH", cfg.Sources.PrimaryPath)
	cfg.Sources.ReferencePath = getEnv("RECONCILE_REFERENCE_PATH", cfg.Sources.ReferencePath)
	cfg.Sources.OutputDir = getEnv("RECONCILE_OUTPUT_DIR", cfg.Sources.OutputDir)
	cfg.Sources.StartDate = getEnv("RECONCILE_START_DATE", "")
	cfg.Sources.EndDate = getEnv("RECONCILE_END_DATE", "")

	cfg.API.Port = getEnvInt("RECONCILE_API_PORT", cfg.API.Port)
	if origins := os.Getenv("RECONCILE_API_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = strings.Split(origins, ",")
	}

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", cfg.Observability.Logging.Format)

	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	var errs []error
	if c.Reconcile.Self.WindowDays < 0 {
		errs = append(errs, errors.New("reconcile.self.window_days must not be negative"))
	}
	if c.Reconcile.Cross.LookbackDays < 0 || c.Reconcile.Cross.LookaheadDays < 0 {
		errs = append(errs, errors.New("reconcile.cross lookback/lookahead must not be negative"))
	}
	if _, _, err := c.Sources.DateRange(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DateRange parses the optional start and end dates. Unset dates are zero.
func (s SourcesConfig) DateRange() (start, end time.Time, err error) {
	if start, err = parseDate("sources.start_date", s.StartDate); err != nil {
		return
	}
	if end, err = parseDate("sources.end_date", s.EndDate); err != nil {
		return
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		err = fmt.Errorf("sources.end_date %s is before start_date %s", s.EndDate, s.StartDate)
	}
	return
}

func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: expected YYYY-MM-DD, got %q", field, value)
	}
	return t, nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvBool treats 1, true and yes as true
func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return fallback
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
