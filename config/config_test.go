package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupDirs(t *testing.T) (configDir, dataDir string) {
	t.Helper()
	root := t.TempDir()
	configDir = filepath.Join(root, "config")
	dataDir = filepath.Join(root, "data")
	t.Setenv("OPENDOCS_CONFIG_DIR", configDir)
	t.Setenv("OPENDOCS_DATA_DIR", dataDir)
	t.Setenv("OPENDOCS_PROVIDER", "")
	t.Setenv("OPENDOCS_MODEL", "")
	t.Setenv("OPENDOCS_LISTEN", "")
	return configDir, dataDir
}

func TestLoadCreatesDefaults(t *testing.T) {
	_, dataDir := setupDirs(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DefaultProvider != "gemini" {
		t.Errorf("DefaultProvider = %q, want gemini", cfg.DefaultProvider)
	}
	if cfg.RequestTimeout != 120*time.Second {
		t.Errorf("RequestTimeout = %v, want 120s", cfg.RequestTimeout)
	}
	if cfg.MaxAttachmentBytes != 20<<20 {
		t.Errorf("MaxAttachmentBytes = %d, want %d", cfg.MaxAttachmentBytes, 20<<20)
	}
	if cfg.MaxRequestBytes != 64<<20 {
		t.Errorf("MaxRequestBytes = %d, want %d", cfg.MaxRequestBytes, 64<<20)
	}
	if cfg.Listen != "127.0.0.1:8787" || cfg.WSPath != "/ws" {
		t.Errorf("server = %s%s, want 127.0.0.1:8787/ws", cfg.Listen, cfg.WSPath)
	}
	if !FileExists(filepath.Join(dataDir, "config.toml")) {
		t.Error("expected default config.toml to be written")
	}
	if got := cfg.ProviderBaseURL("ollama"); got != "http://localhost:11434" {
		t.Errorf("ollama base url = %q", got)
	}
}

func TestLoadGeneratedTemplateRoundTrips(t *testing.T) {
	_, dataDir := setupDirs(t)

	if err := CreateDefaultUserConfig(dataDir); err != nil {
		t.Fatalf("CreateDefaultUserConfig() error = %v", err)
	}
	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadUserConfig() error = %v", err)
	}
	if len(userCfg.Providers) != len(KnownProviders) {
		t.Errorf("template declares %d providers, want %d", len(userCfg.Providers), len(KnownProviders))
	}
	if userCfg.Relay.RequestTimeout != "120s" {
		t.Errorf("request_timeout = %q", userCfg.Relay.RequestTimeout)
	}
}

func TestLoadUserOverrides(t *testing.T) {
	_, dataDir := setupDirs(t)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		t.Fatal(err)
	}

	content := `
custom_instructions = "Answer in French."

[relay]
default_provider = "anthropic"
default_model = "claude-sonnet-4-5-20250929"
request_timeout = "30s"
max_attachment_mb = 5
max_request_mb = 128
journal = true

[server]
listen = "127.0.0.1:9000"
`
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DefaultProvider != "anthropic" {
		t.Errorf("DefaultProvider = %q", cfg.DefaultProvider)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.MaxAttachmentBytes != 5<<20 {
		t.Errorf("MaxAttachmentBytes = %d", cfg.MaxAttachmentBytes)
	}
	if cfg.MaxRequestBytes != 128<<20 {
		t.Errorf("MaxRequestBytes = %d", cfg.MaxRequestBytes)
	}
	if !cfg.JournalEnabled {
		t.Error("JournalEnabled = false, want true")
	}
	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.WSPath != "/ws" {
		t.Errorf("WSPath = %q, want default /ws", cfg.WSPath)
	}
	if cfg.CustomInstructions != "Answer in French." {
		t.Errorf("CustomInstructions = %q", cfg.CustomInstructions)
	}
	if !cfg.ProviderEnabled("gemini") {
		t.Error("providers missing from the file should fall back to defaults")
	}
}

func TestEnvOverrides(t *testing.T) {
	setupDirs(t)
	t.Setenv("OPENDOCS_PROVIDER", "ollama")
	t.Setenv("OPENDOCS_MODEL", "llama3.1:latest")
	t.Setenv("OPENDOCS_LISTEN", "0.0.0.0:7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultProvider != "ollama" || cfg.DefaultModel != "llama3.1:latest" || cfg.Listen != "0.0.0.0:7000" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	_, dataDir := setupDirs(t)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte("[relay]\nrequest_timeout = \"soon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparsable request_timeout")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown provider", func(c *Config) { c.DefaultProvider = "bard" }, true},
		{"unknown provider entry", func(c *Config) { c.Providers = []ProviderConfig{{ID: "x"}} }, true},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }, true},
		{"zero attachment limit", func(c *Config) { c.MaxAttachmentBytes = 0 }, true},
		{"zero request limit", func(c *Config) { c.MaxRequestBytes = 0 }, true},
		{"listen without port", func(c *Config) { c.Listen = "localhost" }, true},
		{"ws path without slash", func(c *Config) { c.WSPath = "ws" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestUpdateProviderField(t *testing.T) {
	_, dataDir := setupDirs(t)

	if err := UpdateProviderField(dataDir, "ollama", "base_url", "http://gpu-box:11434"); err != nil {
		t.Fatalf("UpdateProviderField() error = %v", err)
	}
	if err := UpdateProviderField(dataDir, "openai", "enabled", "false"); err != nil {
		t.Fatalf("UpdateProviderField() error = %v", err)
	}
	if err := UpdateProviderField(dataDir, "openai", "color", "blue"); err == nil {
		t.Error("expected error for unknown field")
	}
	if err := UpdateProviderField(dataDir, "bard", "enabled", "true"); err == nil {
		t.Error("expected error for unknown provider")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.ProviderBaseURL("ollama"); got != "http://gpu-box:11434" {
		t.Errorf("ollama base url = %q", got)
	}
	if cfg.ProviderEnabled("openai") {
		t.Error("openai should be disabled")
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/reader")
	t.Setenv("DOCS", "/srv/docs")

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"~/opendocs", "/home/reader/opendocs"},
		{"$DOCS/a/../b", "/srv/docs/b"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != filepath.FromSlash(tt.want) && tt.want != "" {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
