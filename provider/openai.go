package provider

import (
	"context"
	"fmt"

	"opendocs/model"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider implements the Provider interface using OpenAI's official API.
// It uses the official OpenAI Go SDK for direct OpenAI API access.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// Parameters:
//   - baseURL: OpenAI API base URL (default: "https://api.openai.com/v1")
//   - apiKey: OpenAI API key (required)
//   - model: Initial model to use (default: "gpt-4o-mini")
//
// Returns an error if the API key is missing.
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini" // Default to affordable model
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &OpenAIProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Stream implements Provider.Stream.
func (p *OpenAIProvider) Stream(ctx context.Context, req model.StreamRequest, callback model.StreamCallback) error {
	modelName := p.model
	if req.Model != "" {
		modelName = req.Model
	}
	return streamChatCompletion(ctx, &p.client, "openai", openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(req.System, req.Messages),
		Model:    openai.ChatModel(modelName),
	}, callback)
}

// streamChatCompletion runs a streaming chat completion and forwards content
// deltas. Shared by every OpenAI-compatible adapter.
func streamChatCompletion(ctx context.Context, client *openai.Client, providerName string, params openai.ChatCompletionNewParams, callback model.StreamCallback) error {
	stream := client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()

		c := model.Chunk{Kind: model.ChunkOther}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			c = model.TextChunk(chunk.Choices[0].Delta.Content)
		}
		if err := callback(c); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		return WrapError(providerName, fmt.Errorf("%s streaming error: %w", providerName, err))
	}
	return nil
}

// ListModels implements Provider.ListModels.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, WrapError("openai", fmt.Errorf("failed to list OpenAI models: %w", err))
	}

	result := make([]model.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, model.ModelInfo{
			Name:         m.ID, // OpenAI models don't have vendor prefixes
			InternalName: m.ID,
			Provider:     "openai", // CRITICAL: Must match provider ID
		})
	}

	return result, nil
}

// GetModel implements Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements Provider.GetDisplayName.
// Returns the model name for UI display (same as GetModel for OpenAI).
func (p *OpenAIProvider) GetDisplayName() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by attempting to list models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return WrapError("openai", fmt.Errorf("OpenAI ping failed: %w", err))
	}
	return nil
}
