// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ScenarioPath     string
	CatalogPath      string
	LogFile          string
	LogLevel         string
	MetricsAddr      string
	RefreshInterval  time.Duration
	ConnectTimeout   time.Duration
	SelfTestDuration time.Duration
	Notifications    bool
}

// Default values
const (
	defaultRefreshInterval = 500 * time.Millisecond
	defaultConnectTimeout  = 5 * time.Second
	defaultLogLevel        = "info"
	appDirName             = "rfid-console"
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// First .env found wins; real environment variables still take precedence
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		ScenarioPath:     getEnvString("READER_SCENARIO_PATH", defaultPath("scenario.yaml")),
		CatalogPath:      getEnvString("CATALOG_PATH", defaultPath("catalog.db")),
		LogFile:          getEnvString("LOG_FILE", defaultPath("rfid-console.log")),
		LogLevel:         getEnvString("LOG_LEVEL", defaultLogLevel),
		MetricsAddr:      getEnvString("METRICS_ADDR", ""),
		RefreshInterval:  getEnvDuration("REFRESH_INTERVAL", defaultRefreshInterval),
		ConnectTimeout:   getEnvDuration("CONNECT_TIMEOUT", defaultConnectTimeout),
		SelfTestDuration: getEnvDuration("SELF_TEST_DURATION", 0),
		Notifications:    getEnvBool("NOTIFICATIONS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := ensureDir(filepath.Dir(cfg.CatalogPath)); err != nil {
		return nil, err
	}
	if err := ensureDir(filepath.Dir(cfg.ScenarioPath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that would make the capture core misbehave.
func (c *Config) Validate() error {
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive, got %v", c.RefreshInterval)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("CONNECT_TIMEOUT must be positive, got %v", c.ConnectTimeout)
	}
	if c.SelfTestDuration < 0 {
		return fmt.Errorf("SELF_TEST_DURATION must not be negative, got %v", c.SelfTestDuration)
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appDirName, ".env"))
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
	}

	return paths
}

// defaultPath returns a file path inside the application config directory.
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".config", appDirName, name)
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	switch strings.ToLower(value) {
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
