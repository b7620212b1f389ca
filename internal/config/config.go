// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; the API key goes to the OS keychain.
//
// Settings resolve in three layers: built-in defaults, config.json, then
// environment variables (optionally supplied through .env files).
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"vendorbridge/cli/internal/xdg"
)

// Environment variables that override config.json.
const (
	EnvCloudURL = "VENDORBRIDGE_CLOUD_URL"
	EnvAPIKey   = "VENDORBRIDGE_API_KEY"
	EnvLogLevel = "VENDORBRIDGE_LOG_LEVEL"
	EnvBrowser  = "VENDORBRIDGE_BROWSER"
	EnvHeadless = "VENDORBRIDGE_HEADLESS"
	EnvAppEnv   = "APP_ENV"
)

// DefaultCloudURL is the orchestrator used when nothing else is configured.
const DefaultCloudURL = "http://localhost:3001"

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel string         `json:"log_level"`
	CloudURL string         `json:"cloud_url"`
	Browser  BrowserConfig  `json:"browser"`
	Timeouts TimeoutsConfig `json:"timeouts"`
}

// BrowserConfig selects the browser launched for browser instructions that
// do not name one.
type BrowserConfig struct {
	Kind     string `json:"kind"`
	Headless bool   `json:"headless"`
}

// TimeoutsConfig bounds orchestrator requests and local operations.
type TimeoutsConfig struct {
	RequestMS   int `json:"request_ms"`
	OperationMS int `json:"operation_ms"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		CloudURL: DefaultCloudURL,
		Browser:  BrowserConfig{Kind: "chromium", Headless: true},
		Timeouts: TimeoutsConfig{RequestMS: 30000, OperationMS: 30000},
	}
}

// RequestTimeout is the orchestrator request bound.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeouts.RequestMS) * time.Millisecond
}

// OperationTimeout is the database operation bound.
func (c Config) OperationTimeout() time.Duration {
	return time.Duration(c.Timeouts.OperationMS) * time.Millisecond
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults. Fields absent
// from the file keep their default values.
func Load() (Config, error) {
	c := Defaults()
	p, err := Path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	c.fillZeroes()
	return c, nil
}

func (c *Config) fillZeroes() {
	d := Defaults()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.CloudURL == "" {
		c.CloudURL = d.CloudURL
	}
	if c.Browser.Kind == "" {
		c.Browser.Kind = d.Browser.Kind
	}
	if c.Timeouts.RequestMS <= 0 {
		c.Timeouts.RequestMS = d.Timeouts.RequestMS
	}
	if c.Timeouts.OperationMS <= 0 {
		c.Timeouts.OperationMS = d.Timeouts.OperationMS
	}
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// LoadEnv reads .env and then .env.<APP_ENV> from the working directory.
// Variables already set in the process environment win; missing files are
// not an error.
func LoadEnv() error {
	files := []string{".env"}
	if env := os.Getenv(EnvAppEnv); env != "" {
		files = append(files, ".env."+env)
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overlays environment overrides onto c.
func (c Config) ApplyEnv() Config {
	if v := os.Getenv(EnvCloudURL); v != "" {
		c.CloudURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvBrowser); v != "" {
		c.Browser.Kind = v
	}
	if v := os.Getenv(EnvHeadless); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	return c
}

// APIKeyFromEnv returns the API key supplied through the environment.
func APIKeyFromEnv() string {
	return os.Getenv(EnvAPIKey)
}
