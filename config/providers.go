package config

import (
	"fmt"
	"slices"
)

const DefaultProviderID = "gemini"

// KnownProviders lists every provider id the relay can construct.
var KnownProviders = []string{"gemini", "anthropic", "openai", "openrouter", "ollama"}

// ProviderConfig is one [[providers]] entry.
type ProviderConfig struct {
	ID      string `toml:"id"`
	BaseURL string `toml:"base_url,omitempty"`
	Enabled bool   `toml:"enabled"`
}

func IsKnownProvider(id string) bool {
	return slices.Contains(KnownProviders, id)
}

func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{ID: "gemini", Enabled: true},
		{ID: "anthropic", Enabled: true},
		{ID: "openai", Enabled: true},
		{ID: "openrouter", BaseURL: "https://openrouter.ai/api/v1", Enabled: true},
		{ID: "ollama", BaseURL: "http://localhost:11434", Enabled: true},
	}
}

// ProviderBaseURL returns the configured base URL for a provider, or "" for the SDK default.
func (c *Config) ProviderBaseURL(id string) string {
	for _, p := range c.Providers {
		if p.ID == id {
			return p.BaseURL
		}
	}
	return ""
}

// ProviderEnabled reports whether requests may use the provider.
// Providers missing from [[providers]] are enabled when known.
func (c *Config) ProviderEnabled(id string) bool {
	for _, p := range c.Providers {
		if p.ID == id {
			return p.Enabled
		}
	}
	return IsKnownProvider(id)
}

// UpdateProviderField updates a single provider configuration field.
//
// Fields:
//   - "base_url": endpoint override
//   - "enabled": "true" / "false"
func UpdateProviderField(dataDir, providerID, fieldName, value string) error {
	if !IsKnownProvider(providerID) {
		return fmt.Errorf("unknown provider: %s", providerID)
	}

	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	idx := -1
	for i := range cfg.Providers {
		if cfg.Providers[i].ID == providerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		cfg.Providers = append(cfg.Providers, ProviderConfig{ID: providerID, Enabled: true})
		idx = len(cfg.Providers) - 1
	}

	switch fieldName {
	case "base_url":
		cfg.Providers[idx].BaseURL = value
	case "enabled":
		cfg.Providers[idx].Enabled = value == "true"
	default:
		return fmt.Errorf("unknown field for %s: %s", providerID, fieldName)
	}

	if err := SaveUserConfig(cfg, dataDir); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
