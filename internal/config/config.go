// Package config provides application configuration management.
// It loads settings from environment variables (and an optional .env file)
// and provides defaults for the server, dataset source, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultDatasetFile is the workbook name looked up under DataDir.
const DefaultDatasetFile = "programs.xlsx"

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	HomepageURL     string // Target of the "/" redirect

	// Dataset Configuration
	DataDir        string // Directory holding the dataset file (default: ./data)
	DatasetFile    string // File name under DataDir; .xlsx or .csv
	DatasetPreload bool   // Load the dataset in the background at startup

	// R2 dataset source (all fields set = R2 enabled)
	R2 R2Config

	// SFTP dataset source (host set = SFTP enabled)
	SFTP SFTPConfig

	// Sentry Configuration (empty DSN = disabled)
	SentryDSN         string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack log shipping (empty token = disabled)
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)
}

// R2Config locates the dataset object in a Cloudflare R2 bucket.
type R2Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Key             string
}

// Enabled reports whether any R2 field is set.
func (r R2Config) Enabled() bool {
	return r.Endpoint != "" || r.AccessKeyID != "" || r.SecretAccessKey != "" || r.Bucket != "" || r.Key != ""
}

func (r R2Config) validate() error {
	var missing []string
	if r.Endpoint == "" {
		missing = append(missing, EnvDatasetR2Endpoint)
	}
	if r.AccessKeyID == "" {
		missing = append(missing, EnvDatasetR2AccessKeyID)
	}
	if r.SecretAccessKey == "" {
		missing = append(missing, EnvDatasetR2SecretAccessKey)
	}
	if r.Bucket == "" {
		missing = append(missing, EnvDatasetR2Bucket)
	}
	if r.Key == "" {
		missing = append(missing, EnvDatasetR2Key)
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete R2 dataset source, missing %s", strings.Join(missing, ", "))
	}
	if !isSupportedDatasetFile(r.Key) {
		return fmt.Errorf("%s must end in .xlsx or .csv (optionally .zst or .br), got %q", EnvDatasetR2Key, r.Key)
	}
	return nil
}

// SFTPConfig locates the dataset file on an SFTP server.
type SFTPConfig struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Path                  string
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
}

// Enabled reports whether an SFTP host is configured.
func (s SFTPConfig) Enabled() bool {
	return s.Host != ""
}

func (s SFTPConfig) validate() error {
	var missing []string
	if s.User == "" {
		missing = append(missing, EnvDatasetSFTPUser)
	}
	if s.Password == "" {
		missing = append(missing, EnvDatasetSFTPPassword)
	}
	if s.Path == "" {
		missing = append(missing, EnvDatasetSFTPPath)
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete SFTP dataset source, missing %s", strings.Join(missing, ", "))
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("%s must be within [0, 65535], got %d", EnvDatasetSFTPPort, s.Port)
	}
	if s.KnownHostsFile == "" && !s.InsecureIgnoreHostKey {
		return fmt.Errorf("%s is required unless %s=true", EnvDatasetSFTPKnownHosts, EnvDatasetSFTPInsecureIgnoreHostKey)
	}
	if !isSupportedDatasetFile(s.Path) {
		return fmt.Errorf("%s must end in .xlsx or .csv (optionally .zst or .br), got %q", EnvDatasetSFTPPath, s.Path)
	}
	return nil
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		HomepageURL:     getEnv(EnvHomepageURL, "https://github.com/garyellow/program-lookup"),

		DataDir:        getEnv(EnvDataDir, "./data"),
		DatasetFile:    getEnv(EnvDatasetFile, DefaultDatasetFile),
		DatasetPreload: getBoolEnv(EnvDatasetPreload, true),

		R2: R2Config{
			Endpoint:        getEnv(EnvDatasetR2Endpoint, ""),
			AccessKeyID:     getEnv(EnvDatasetR2AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvDatasetR2SecretAccessKey, ""),
			Bucket:          getEnv(EnvDatasetR2Bucket, ""),
			Key:             getEnv(EnvDatasetR2Key, ""),
		},

		SFTP: SFTPConfig{
			Host:                  getEnv(EnvDatasetSFTPHost, ""),
			Port:                  getIntEnv(EnvDatasetSFTPPort, 22),
			User:                  getEnv(EnvDatasetSFTPUser, ""),
			Password:              getEnv(EnvDatasetSFTPPassword, ""),
			Path:                  getEnv(EnvDatasetSFTPPath, ""),
			KnownHostsFile:        getEnv(EnvDatasetSFTPKnownHosts, ""),
			InsecureIgnoreHostKey: getBoolEnv(EnvDatasetSFTPInsecureIgnoreHostKey, false),
		},

		SentryDSN:         getEnv(EnvSentryDSN, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", c.ShutdownTimeout))
	}
	switch {
	case c.R2.Enabled() && c.SFTP.Enabled():
		errs = append(errs, errors.New("configure either the R2 or the SFTP dataset source, not both"))
	case c.R2.Enabled():
		if err := c.R2.validate(); err != nil {
			errs = append(errs, err)
		}
	case c.SFTP.Enabled():
		if err := c.SFTP.validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR is required"))
		}
		if !isSupportedDatasetFile(c.DatasetFile) {
			errs = append(errs, fmt.Errorf("DATASET_FILE must end in .xlsx or .csv (optionally .zst or .br), got %q", c.DatasetFile))
		}
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("SENTRY_SAMPLE_RATE must be within [0, 1], got %v", c.SentrySampleRate))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DatasetPath returns the full path to the dataset file
func (c *Config) DatasetPath() string {
	return filepath.Join(c.DataDir, c.DatasetFile)
}

// MetricsAuthEnabled reports whether /metrics requires Basic Auth.
func (c *Config) MetricsAuthEnabled() bool {
	return c.MetricsPassword != ""
}

func isSupportedDatasetFile(name string) bool {
	name = strings.ToLower(name)
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".zst"), ".br")
	switch filepath.Ext(name) {
	case ".xlsx", ".csv":
		return true
	}
	return false
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
