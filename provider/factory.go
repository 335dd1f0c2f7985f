package provider

import (
	"fmt"

	"opendocs/config"
	"opendocs/model"
)

// NewProvider creates a provider based on configuration.
//
// This is the centralized factory function for creating any provider type.
// It dispatches to the appropriate provider constructor based on Config.Type.
//
// Returns an error if:
//   - The provider type is unknown
//   - The provider needs an API key and none was given
//   - The provider-specific constructor fails (e.g., invalid URL)
//
// Example:
//
//	cfg := provider.Config{
//	    Type:   provider.ProviderTypeGemini,
//	    APIKey: "AIza...",
//	    Model:  "gemini-2.0-flash-lite",
//	}
//	p, err := provider.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewProvider(cfg Config) (model.Provider, error) {
	// Each branch checks err itself: a nil *XProvider returned as
	// model.Provider would not compare equal to nil.
	switch cfg.Type {
	case ProviderTypeGemini:
		p, err := NewGeminiProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderTypeOllama:
		p, err := NewOllamaProvider(cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderTypeOpenRouter:
		p, err := NewOpenRouterProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderTypeOpenAI:
		p, err := NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderTypeAnthropic:
		p, err := NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a factory ProviderType.
//
// The empty ID maps to the default provider (Gemini). For unknown IDs the ID
// is returned cast as ProviderType and the factory will error.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "", "gemini":
		return ProviderTypeGemini
	case "ollama":
		return ProviderTypeOllama
	case "openrouter":
		return ProviderTypeOpenRouter
	case "openai":
		return ProviderTypeOpenAI
	case "anthropic":
		return ProviderTypeAnthropic
	default:
		// Fallback: pass ID as-is (factory will return error)
		return ProviderType(id)
	}
}

// RequiresAPIKey reports whether requests to t must carry an API key.
func RequiresAPIKey(t ProviderType) bool {
	return t != ProviderTypeOllama
}

func logDebug(msg string, keyvals ...any) {
	if config.Debug {
		config.DebugLog.Debug(msg, keyvals...)
	}
}
