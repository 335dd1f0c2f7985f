package provider

import (
	"context"
	"fmt"
	"strings"

	"opendocs/model"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenRouterProvider implements the Provider interface using OpenAI's official Go SDK.
// It connects to OpenRouter's API which is 100% OpenAI-compatible.
type OpenRouterProvider struct {
	client  openai.Client
	model   string
	baseURL string
}

// NewOpenRouterProvider creates a new OpenRouter provider instance.
//
// Parameters:
//   - baseURL: OpenRouter API base URL ("https://openrouter.ai/api/v1")
//   - apiKey: OpenRouter API key
//   - model: Initial model to use (can be changed with SetModel)
func NewOpenRouterProvider(baseURL, apiKey, model string) (*OpenRouterProvider, error) {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}
	if model == "" {
		model = "google/gemini-2.0-flash-lite-001"
	}

	// Create OpenAI client with custom base URL for OpenRouter
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &OpenRouterProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Stream implements Provider.Stream.
func (p *OpenRouterProvider) Stream(ctx context.Context, req model.StreamRequest, callback model.StreamCallback) error {
	modelName := p.model
	if req.Model != "" {
		modelName = req.Model
	}
	return streamChatCompletion(ctx, &p.client, "openrouter", openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(req.System, req.Messages),
		Model:    openai.ChatModel(modelName),
	}, callback)
}

// ListModels implements Provider.ListModels with prefix stripping.
func (p *OpenRouterProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, WrapError("openrouter", fmt.Errorf("failed to list OpenRouter models: %w", err))
	}

	result := make([]model.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, model.ModelInfo{
			Name:         stripProviderPrefix(m.ID), // Display: "gemini-2.0-flash-lite-001"
			InternalName: m.ID,                      // API: "google/gemini-2.0-flash-lite-001"
			Provider:     "openrouter",
		})
	}

	return result, nil
}

// GetModel implements Provider.GetModel.
// Returns the full model name with vendor prefix for API calls.
// Example: "qwen/qwen3-coder:free"
func (p *OpenRouterProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements Provider.GetDisplayName.
// Returns the model name with vendor prefix stripped for UI display.
// Example: "qwen/qwen3-coder:free" → "qwen3-coder:free"
func (p *OpenRouterProvider) GetDisplayName() string {
	return stripProviderPrefix(p.model)
}

// SetModel implements Provider.SetModel.
func (p *OpenRouterProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by attempting to list models.
func (p *OpenRouterProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return WrapError("openrouter", fmt.Errorf("OpenRouter ping failed: %w", err))
	}
	return nil
}

// stripProviderPrefix removes vendor prefixes from OpenRouter model names.
// "meta-llama/llama-3.2-90b-instruct" → "llama-3.2-90b-instruct"
// "anthropic/claude-sonnet-4" → "claude-sonnet-4"
func stripProviderPrefix(modelName string) string {
	if idx := strings.Index(modelName, "/"); idx != -1 {
		return modelName[idx+1:]
	}
	return modelName
}
