// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg, err := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	tolerance := cfg.Reconcile.Tolerance()
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Reconcile     ReconcileConfig     `yaml:"reconcile"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig selects and configures the document store
type StorageConfig struct {
	Driver             string `yaml:"driver"` // "sqlite" (default) or "firestore"
	DatabasePath       string `yaml:"database_path"`
	FirestoreProjectID string `yaml:"firestore_project_id"`
	CredentialsFile    string `yaml:"credentials_file"` // Empty uses application default credentials
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Reconciliation defaults
const (
	DefaultAmountTolerance = 0.01
	DefaultFuzzyWindowDays = 3
)

// ReconcileConfig holds reconciliation settings.
// Every field is a pointer so an absent key keeps its default and an
// explicit zero is honored.
type ReconcileConfig struct {
	AmountTolerance *float64 `yaml:"amount_tolerance"`
	FuzzyWindowDays *int     `yaml:"fuzzy_window_days"`
	AtomicWrites    *bool    `yaml:"atomic_writes"`
	CascadeOnDelete *bool    `yaml:"cascade_on_delete"`
}

// Tolerance returns the amount tolerance (default 0.01)
func (r ReconcileConfig) Tolerance() float64 {
	if r.AmountTolerance == nil {
		return DefaultAmountTolerance
	}
	return *r.AmountTolerance
}

// WindowDays returns the fuzzy match window in days (default 3)
func (r ReconcileConfig) WindowDays() int {
	if r.FuzzyWindowDays == nil {
		return DefaultFuzzyWindowDays
	}
	return *r.FuzzyWindowDays
}

// UseAtomicWrites reports whether batched writes are enabled (default true)
func (r ReconcileConfig) UseAtomicWrites() bool {
	return r.AtomicWrites == nil || *r.AtomicWrites
}

// CascadeDeletes reports whether deleting a statement unlinks its
// transactions (default true)
func (r ReconcileConfig) CascadeDeletes() bool {
	return r.CascadeOnDelete == nil || *r.CascadeOnDelete
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" (default) or "json"
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${FIRESTORE_PROJECT})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			Driver:             getEnv("CHURCHBOOKS_STORAGE_DRIVER", DriverSQLite),
			DatabasePath:       getEnv("CHURCHBOOKS_DB_PATH", "churchbooks.db"),
			FirestoreProjectID: os.Getenv("FIRESTORE_PROJECT_ID"),
			CredentialsFile:    os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		},
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8085),
			AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		},
		Reconcile: ReconcileConfig{
			AmountTolerance: getEnvFloat("RECONCILE_AMOUNT_TOLERANCE"),
			FuzzyWindowDays: getEnvIntPtr("RECONCILE_FUZZY_WINDOW_DAYS"),
			AtomicWrites:    getEnvBool("RECONCILE_ATOMIC_WRITES"),
			CascadeOnDelete: getEnvBool("RECONCILE_CASCADE_ON_DELETE"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() (*Config, error) {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath loads the file at path, falling back to environment
// variables only when the file does not exist. A file that exists but cannot
// be read, parsed or validated is an error.
func LoadOrEnvWithPath(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return LoadFromEnv(), nil
	}
	return nil, fmt.Errorf("config %s: %w", path, err)
}

// Validate checks settings that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.DatabasePath == "" {
			return fmt.Errorf("storage.database_path is required for the sqlite driver")
		}
	case DriverFirestore:
		if c.Storage.FirestoreProjectID == "" {
			return fmt.Errorf("storage.firestore_project_id is required for the firestore driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Reconcile.Tolerance() < 0 {
		return fmt.Errorf("reconcile.amount_tolerance must not be negative")
	}
	if c.Reconcile.WindowDays() < 0 {
		return fmt.Errorf("reconcile.fuzzy_window_days must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Storage.Driver == DriverSQLite && c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "churchbooks.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8085
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
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
		if result, err := strconv.Atoi(val); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat returns nil when the variable is unset or unparseable
func getEnvFloat(key string) *float64 {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &f
}

// getEnvIntPtr returns nil when the variable is unset or unparseable
func getEnvIntPtr(key string) *int {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return nil
	}
	return &n
}

// getEnvBool returns nil when the variable is unset or unparseable
func getEnvBool(key string) *bool {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &b
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
