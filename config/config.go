package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type RelayConfig struct {
	DefaultProvider string `toml:"default_provider"`
	DefaultModel    string `toml:"default_model,omitempty"`
	RequestTimeout  string `toml:"request_timeout"`
	MaxAttachmentMB int    `toml:"max_attachment_mb"`
	MaxRequestMB    int    `toml:"max_request_mb"`
	Journal         bool   `toml:"journal"`
}

type ServerConfig struct {
	Listen string `toml:"listen"`
	WSPath string `toml:"ws_path"`
}

type UserConfig struct {
	Relay              RelayConfig      `toml:"relay"`
	Server             ServerConfig     `toml:"server"`
	CustomInstructions string           `toml:"custom_instructions,omitempty"`
	Providers          []ProviderConfig `toml:"providers"`
}

type Config struct {
	DataDirectory      string
	DefaultProvider    string
	DefaultModel       string
	RequestTimeout     time.Duration
	MaxAttachmentBytes int64
	MaxRequestBytes    int
	JournalEnabled     bool
	Listen             string
	WSPath             string
	CustomInstructions string
	Providers          []ProviderConfig
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) applyUserConfig(userCfg *UserConfig) error {
	c.DefaultProvider = userCfg.Relay.DefaultProvider
	c.DefaultModel = userCfg.Relay.DefaultModel
	c.JournalEnabled = userCfg.Relay.Journal
	c.CustomInstructions = userCfg.CustomInstructions
	c.Providers = userCfg.Providers

	if userCfg.Relay.RequestTimeout != "" {
		d, err := time.ParseDuration(userCfg.Relay.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout %q: %w", userCfg.Relay.RequestTimeout, err)
		}
		c.RequestTimeout = d
	}
	if userCfg.Relay.MaxAttachmentMB > 0 {
		c.MaxAttachmentBytes = int64(userCfg.Relay.MaxAttachmentMB) << 20
	}
	if userCfg.Relay.MaxRequestMB > 0 {
		c.MaxRequestBytes = userCfg.Relay.MaxRequestMB << 20
	}
	if userCfg.Server.Listen != "" {
		c.Listen = userCfg.Server.Listen
	}
	if userCfg.Server.WSPath != "" {
		c.WSPath = userCfg.Server.WSPath
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if provider := os.Getenv("OPENDOCS_PROVIDER"); provider != "" {
		c.DefaultProvider = provider
	}
	if model := os.Getenv("OPENDOCS_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if listen := os.Getenv("OPENDOCS_LISTEN"); listen != "" {
		c.Listen = listen
	}
}

// Validate reports the first setting that would make the relay misbehave.
func (c *Config) Validate() error {
	if !IsKnownProvider(c.DefaultProvider) {
		return fmt.Errorf("unknown default provider %q (known: %s)", c.DefaultProvider, strings.Join(KnownProviders, ", "))
	}
	for _, p := range c.Providers {
		if !IsKnownProvider(p.ID) {
			return fmt.Errorf("unknown provider id %q in [[providers]]", p.ID)
		}
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if c.MaxAttachmentBytes <= 0 {
		return fmt.Errorf("max_attachment_mb must be positive")
	}
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("max_request_mb must be positive")
	}
	if _, port, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	} else if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("invalid listen port %q", port)
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return fmt.Errorf("ws_path must start with '/': %q", c.WSPath)
	}
	return nil
}

func CheckDebug() bool {
	debug := os.Getenv("OPENDOCS_DEBUG")
	return debug == "true" || debug == "1"
}

// Defaults returns the configuration used when no files exist yet.
func Defaults() *Config {
	return &Config{
		DataDirectory:      GetDefaultDataDir(),
		DefaultProvider:    DefaultProviderID,
		RequestTimeout:     120 * time.Second,
		MaxAttachmentBytes: 20 << 20,
		MaxRequestBytes:    64 << 20,
		Listen:             "127.0.0.1:8787",
		WSPath:             "/ws",
	}
}

func Load() (*Config, error) {
	cfg := Defaults()

	if dataDir := os.Getenv("OPENDOCS_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	} else {
		systemCfg, err := LoadSystemConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		cfg.DataDirectory = systemCfg.DataDirectory
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Ensure data directory has correct permissions (fix if needed)
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if err := cfg.applyUserConfig(userCfg); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
