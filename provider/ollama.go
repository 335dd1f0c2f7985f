package provider

import (
	"context"
	"fmt"

	"opendocs/model"
	"opendocs/ollama"
)

// OllamaProvider wraps the ollama.Client to implement the Provider interface.
//
// This provider handles the type conversions between the relay's chat messages
// and Ollama's api.Message. It is the only adapter that needs no API key.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Parameters:
//   - baseURL: The Ollama server URL (e.g., "http://localhost:11434").
//     If empty, defaults to "http://localhost:11434".
//   - model: The model name to use (e.g., "llama3.1:latest").
//     If empty, defaults to "llama3.1:latest".
//
// Returns an error if the baseURL is invalid.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client: client,
	}, nil
}

// Stream implements Provider.Stream.
//
// The system prompt becomes a leading system message and image attachments
// are sent as images. Ollama streams one response object per token batch;
// each becomes a ChunkText, ChunkThought or (when empty) ChunkOther.
func (p *OllamaProvider) Stream(ctx context.Context, req model.StreamRequest, callback model.StreamCallback) error {
	messages := ConvertToOllamaMessages(req.System, req.Messages)

	err := p.client.Chat(ctx, req.Model, messages, func(content, thinking string) error {
		if thinking != "" {
			if err := callback(model.Chunk{Kind: model.ChunkThought, Text: thinking}); err != nil {
				return err
			}
		}
		if content == "" {
			return callback(model.Chunk{Kind: model.ChunkOther})
		}
		return callback(model.TextChunk(content))
	})
	if err != nil {
		return WrapError("ollama", err)
	}
	return nil
}

// ListModels implements Provider.ListModels (direct passthrough).
func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	models, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, WrapError("ollama", err)
	}
	return models, nil
}

// GetModel implements Provider.GetModel (direct passthrough).
func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

// GetDisplayName implements Provider.GetDisplayName.
//
// For Ollama, the display name is the same as the model name (no vendor prefix).
func (p *OllamaProvider) GetDisplayName() string {
	return p.client.GetModel()
}

// SetModel implements Provider.SetModel (direct passthrough).
func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

// Ping implements Provider.Ping.
//
// Checks if the Ollama server is reachable by making a lightweight API call.
// Returns an error if the server is not reachable or times out.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return WrapError("ollama", fmt.Errorf("Ollama ping failed at %s: %w", p.client.BaseURL(), err))
	}
	return nil
}
