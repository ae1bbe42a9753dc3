package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Vault.Include) != 1 || cfg.Vault.Include[0] != "**/*.md" {
		t.Errorf("expected default include [**/*.md], got %v", cfg.Vault.Include)
	}
	if cfg.Watch.Enabled {
		t.Error("expected watching disabled by default")
	}
	if cfg.Watch.DebounceDelay != "500ms" {
		t.Errorf("expected default debounce 500ms, got %s", cfg.Watch.DebounceDelay)
	}
	if cfg.HTTP.Addr != ":8484" {
		t.Errorf("expected default addr :8484, got %s", cfg.HTTP.Addr)
	}
	if cfg.NATS.URL != "" {
		t.Errorf("expected NATS disabled by default, got %s", cfg.NATS.URL)
	}
	if cfg.NATS.SnapshotBucket != "SEMDEX_SNAPSHOTS" {
		t.Errorf("expected default snapshot bucket SEMDEX_SNAPSHOTS, got %s", cfg.NATS.SnapshotBucket)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Log.Level)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing include patterns",
			modify:  func(c *Config) { c.Vault.Include = nil },
			wantErr: true,
		},
		{
			name:    "missing http addr",
			modify:  func(c *Config) { c.HTTP.Addr = "" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "debug log level",
			modify:  func(c *Config) { c.Log.Level = "debug" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
vault:
  path: "/notes/vault"
  include:
    - "**/*.md"
    - "journal/**/*.txt"
  exclude:
    - ".trash"
watch:
  enabled: true
  debounce_delay: 200ms
http:
  addr: ":9090"
nats:
  url: "nats://test:4222"
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Vault.Path != "/notes/vault" {
		t.Errorf("expected vault path /notes/vault, got %s", cfg.Vault.Path)
	}
	if len(cfg.Vault.Include) != 2 {
		t.Errorf("expected 2 include patterns, got %d", len(cfg.Vault.Include))
	}
	if len(cfg.Vault.Exclude) != 1 || cfg.Vault.Exclude[0] != ".trash" {
		t.Errorf("expected exclude [.trash], got %v", cfg.Vault.Exclude)
	}
	if !cfg.Watch.Enabled {
		t.Error("expected watching enabled")
	}
	if cfg.Watch.GetDebounceDelay() != 200*time.Millisecond {
		t.Errorf("expected debounce 200ms, got %v", cfg.Watch.GetDebounceDelay())
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %s", cfg.HTTP.Addr)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
	// Unset fields keep their defaults
	if cfg.NATS.SnapshotBucket != "SEMDEX_SNAPSHOTS" {
		t.Errorf("expected default snapshot bucket, got %s", cfg.NATS.SnapshotBucket)
	}
}

func TestWatchConfigGetDebounceDelay(t *testing.T) {
	tests := []struct {
		name   string
		delay  string
		expect time.Duration
	}{
		{
			name:   "valid duration",
			delay:  "100ms",
			expect: 100 * time.Millisecond,
		},
		{
			name:   "empty string uses default",
			delay:  "",
			expect: 500 * time.Millisecond,
		},
		{
			name:   "invalid duration uses default",
			delay:  "invalid",
			expect: 500 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := WatchConfig{DebounceDelay: tt.delay}
			got := cfg.GetDebounceDelay()
			if got != tt.expect {
				t.Errorf("GetDebounceDelay() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Vault: VaultConfig{
			Path: "/override/vault",
		},
		HTTP: HTTPConfig{
			Addr: ":7070",
		},
	}

	base.Merge(override)

	if base.Vault.Path != "/override/vault" {
		t.Errorf("expected vault path /override/vault, got %s", base.Vault.Path)
	}
	if base.HTTP.Addr != ":7070" {
		t.Errorf("expected addr :7070, got %s", base.HTTP.Addr)
	}
	// Include should remain from base since override didn't set it
	if len(base.Vault.Include) != 1 || base.Vault.Include[0] != "**/*.md" {
		t.Errorf("expected include to remain default, got %v", base.Vault.Include)
	}
	if base.Log.Level != "info" {
		t.Errorf("expected log level to remain default, got %s", base.Log.Level)
	}
}

func TestConfigMergeLayering(t *testing.T) {
	// A later file that doesn't set a field must not mask an earlier
	// file's explicit value.
	base := DefaultConfig()
	user := &Config{Log: LogConfig{Level: "debug"}}
	project := &Config{Vault: VaultConfig{Path: "/project/vault"}}

	base.Merge(user)
	base.Merge(project)

	if base.Log.Level != "debug" {
		t.Errorf("expected user log level to survive project merge, got %s", base.Log.Level)
	}
	if base.Vault.Path != "/project/vault" {
		t.Errorf("expected project vault path, got %s", base.Vault.Path)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Vault.Path = "/saved/vault"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Vault.Path != "/saved/vault" {
		t.Errorf("expected vault path /saved/vault, got %s", loaded.Vault.Path)
	}
}
