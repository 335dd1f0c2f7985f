package provider

import (
	"context"
	"fmt"

	"opendocs/config"
	"opendocs/model"
)

// PingProvider validates a provider's credentials by calling Ping().
// Used by the `ping` command before a user starts chatting.
func PingProvider(ctx context.Context, f *Factory, providerID, apiKey string) error {
	t, err := f.Resolve(providerID)
	if err != nil {
		return err
	}

	p, err := f.New(t, apiKey, "")
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	if config.Debug {
		config.DebugLog.Debug("provider ping successful", "provider", t)
	}
	return nil
}

// FetchModels fetches the model list of a single provider.
func FetchModels(ctx context.Context, f *Factory, providerID, apiKey string) ([]model.ModelInfo, error) {
	t, err := f.Resolve(providerID)
	if err != nil {
		return nil, err
	}

	p, err := f.New(t, apiKey, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	models, err := p.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	if config.Debug {
		config.DebugLog.Debug("fetched models", "provider", t, "count", len(models))
	}
	return models, nil
}
