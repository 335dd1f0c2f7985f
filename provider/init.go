package provider

import (
	"fmt"

	"opendocs/config"
	"opendocs/model"
)

// Factory creates provider instances from the application configuration.
//
// Nothing is cached: the relay asks for a fresh adapter on every exchange
// because each request carries its own API key.
type Factory struct {
	cfg *config.Config
}

// NewFactory returns a Factory reading provider settings from cfg.
// A nil cfg means built-in defaults.
func NewFactory(cfg *config.Config) *Factory {
	if cfg == nil {
		cfg = config.Defaults()
	}
	return &Factory{cfg: cfg}
}

// Resolve maps a request's provider ID (empty = configured default) to a
// ProviderType, rejecting unknown and disabled providers.
func (f *Factory) Resolve(providerID string) (ProviderType, error) {
	if providerID == "" {
		providerID = f.cfg.DefaultProvider
	}
	if !config.IsKnownProvider(providerID) {
		return "", fmt.Errorf("unknown provider: %s", providerID)
	}
	if !f.cfg.ProviderEnabled(providerID) {
		return "", fmt.Errorf("provider %s is disabled in config", providerID)
	}
	return MapProviderIDToType(providerID), nil
}

// New creates the adapter for one exchange.
//
// modelName may be empty: the configured default model applies when t is the
// default provider, otherwise the adapter's own default.
func (f *Factory) New(t ProviderType, apiKey, modelName string) (model.Provider, error) {
	if modelName == "" && string(t) == f.cfg.DefaultProvider {
		modelName = f.cfg.DefaultModel
	}

	p, err := NewProvider(Config{
		Type:    t,
		BaseURL: f.cfg.ProviderBaseURL(string(t)),
		APIKey:  apiKey,
		Model:   modelName,
	})
	if err != nil {
		return nil, err
	}

	logDebug("created provider", "type", t, "model", p.GetModel())
	return p, nil
}
