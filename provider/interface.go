// Package provider adapts remote generative-model APIs to the model.Provider
// interface the relay streams through.
//
// Every adapter is constructed per request from that request's API key, sends
// the assembled conversation, and reports each streamed piece as a model.Chunk.
// Adapters never retry; failures are returned wrapped by WrapError so callers
// can classify them with KindOf.
//
// # Adapters
//
//   - GeminiProvider (google.golang.org/genai), the default
//   - AnthropicProvider (anthropic-sdk-go)
//   - OpenAIProvider and OpenRouterProvider (openai-go)
//   - OllamaProvider (local Ollama server, no API key)
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:   provider.ProviderTypeGemini,
//	    APIKey: key,
//	})
//	if err != nil {
//	    // handle error
//	}
//	err = p.Stream(ctx, model.StreamRequest{System: sys, Messages: msgs}, callback)
package provider

// Note: The Provider interface and StreamCallback are defined in the model package
// (model/provider.go) to avoid import cycles. This package implements model.Provider.

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeGemini     ProviderType = "gemini"
	ProviderTypeOllama     ProviderType = "ollama"
	ProviderTypeOpenRouter ProviderType = "openrouter"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}
