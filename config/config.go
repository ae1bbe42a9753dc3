// Package config provides configuration loading and management for semdex.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete semdex configuration
type Config struct {
	Vault VaultConfig `yaml:"vault"`
	Watch WatchConfig `yaml:"watch"`
	HTTP  HTTPConfig  `yaml:"http"`
	NATS  NATSConfig  `yaml:"nats"`
	Log   LogConfig   `yaml:"log"`
}

// VaultConfig configures the document vault
type VaultConfig struct {
	// Path is the vault root directory (defaults to the directory holding
	// semdex.yaml, or the current directory)
	Path string `yaml:"path"`
	// Include lists glob patterns selecting documents to index (e.g., "**/*.md")
	Include []string `yaml:"include"`
	// Exclude lists directory names to skip while scanning
	Exclude []string `yaml:"exclude"`
}

// WatchConfig configures vault file watching
type WatchConfig struct {
	// Enabled controls whether file watching is active
	Enabled bool `yaml:"enabled"`
	// DebounceDelay is how long to wait for more changes before processing
	DebounceDelay string `yaml:"debounce_delay"`
	// FileExtensions lists file extensions to watch (e.g., [".md"])
	FileExtensions []string `yaml:"file_extensions"`
	// ExcludeDirs lists directory names to skip (e.g., [".git", ".obsidian"])
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// GetDebounceDelay returns the debounce delay as a duration.
func (c *WatchConfig) GetDebounceDelay() time.Duration {
	if c.DebounceDelay == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(c.DebounceDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// HTTPConfig configures the HTTP API server
type HTTPConfig struct {
	// Addr is the listen address for the HTTP API
	Addr string `yaml:"addr"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = NATS transport disabled)
	URL string `yaml:"url"`
	// SnapshotBucket is the JetStream KV bucket for identifier index snapshots
	SnapshotBucket string `yaml:"snapshot_bucket"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			Path:    "", // Resolved by the loader
			Include: []string{"**/*.md"},
			Exclude: []string{".git", ".obsidian", "node_modules"},
		},
		Watch: WatchConfig{
			Enabled:        false,
			DebounceDelay:  "500ms",
			FileExtensions: []string{".md"},
			ExcludeDirs:    []string{".git", ".obsidian", "node_modules"},
		},
		HTTP: HTTPConfig{
			Addr: ":8484",
		},
		NATS: NATSConfig{
			URL:            "",
			SnapshotBucket: "SEMDEX_SNAPSHOTS",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if len(c.Vault.Include) == 0 {
		return fmt.Errorf("vault.include must list at least one pattern")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// loadRaw parses a YAML file without applying defaults, so the loader can
// layer files without a later file's defaults masking an earlier file's
// explicit values.
func loadRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Vault
	if other.Vault.Path != "" {
		c.Vault.Path = other.Vault.Path
	}
	if len(other.Vault.Include) > 0 {
		c.Vault.Include = other.Vault.Include
	}
	if len(other.Vault.Exclude) > 0 {
		c.Vault.Exclude = other.Vault.Exclude
	}

	// Watch
	if other.Watch.Enabled {
		c.Watch.Enabled = true
	}
	if other.Watch.DebounceDelay != "" {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}
	if len(other.Watch.FileExtensions) > 0 {
		c.Watch.FileExtensions = other.Watch.FileExtensions
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}

	// HTTP
	if other.HTTP.Addr != "" {
		c.HTTP.Addr = other.HTTP.Addr
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SnapshotBucket != "" {
		c.NATS.SnapshotBucket = other.NATS.SnapshotBucket
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}
