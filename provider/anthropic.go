package provider

import (
	"context"
	"fmt"

	"opendocs/model"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface using Anthropic's official API.
// It uses the official Anthropic Go SDK for direct Claude API access.
type AnthropicProvider struct {
	client  *anthropic.Client
	model   anthropic.Model
	baseURL string
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Parameters:
//   - baseURL: Anthropic API base URL (default: "https://api.anthropic.com")
//   - apiKey: Anthropic API key (required)
//   - model: Initial model to use (default: "claude-sonnet-4-5-20250929")
//
// Returns an error if the API key is missing.
func NewAnthropicProvider(baseURL, apiKey, model string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	anthropicModel := anthropic.ModelClaudeSonnet4_5_20250929
	if model != "" {
		anthropicModel = anthropic.Model(model)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &AnthropicProvider{
		client:  &client,
		model:   anthropicModel,
		baseURL: baseURL,
	}, nil
}

// Stream implements Provider.Stream. Only text deltas reach the callback as
// ChunkText; thinking deltas become ChunkThought and every other event ChunkOther.
func (p *AnthropicProvider) Stream(ctx context.Context, req model.StreamRequest, callback model.StreamCallback) error {
	messages, systemBlocks := convertToAnthropicMessages(req.Messages)
	if req.System != "" {
		systemBlocks = append([]anthropic.TextBlockParam{{Text: req.System}}, systemBlocks...)
	}

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: 4096, // Required by Anthropic API
	}
	if req.Model != "" {
		params.Model = anthropic.Model(req.Model)
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		if err := callback(anthropicChunk(stream.Current())); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		return WrapError("anthropic", fmt.Errorf("Anthropic streaming error: %w", err))
	}
	return nil
}

func anthropicChunk(event anthropic.MessageStreamEventUnion) model.Chunk {
	delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
	if !ok {
		return model.Chunk{Kind: model.ChunkOther}
	}
	switch d := delta.Delta.AsAny().(type) {
	case anthropic.TextDelta:
		return model.TextChunk(d.Text)
	case anthropic.ThinkingDelta:
		return model.Chunk{Kind: model.ChunkThought, Text: d.Thinking}
	default:
		return model.Chunk{Kind: model.ChunkOther}
	}
}

// ListModels implements Provider.ListModels.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	// Curated list; keeps `models` usable without spending a request.
	models := []anthropic.Model{
		anthropic.ModelClaudeSonnet4_5_20250929,
		anthropic.ModelClaude3_5Haiku20241022,
		anthropic.ModelClaude_3_Opus_20240229,
		anthropic.ModelClaude_3_Haiku_20240307,
	}

	result := make([]model.ModelInfo, 0, len(models))
	for _, m := range models {
		modelStr := string(m)
		result = append(result, model.ModelInfo{
			Name:         modelStr,
			InternalName: modelStr,
			Provider:     "anthropic", // CRITICAL: Must match provider ID
		})
	}

	return result, nil
}

// GetModel implements Provider.GetModel.
func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

// GetDisplayName implements Provider.GetDisplayName.
func (p *AnthropicProvider) GetDisplayName() string {
	return string(p.model)
}

// SetModel implements Provider.SetModel.
func (p *AnthropicProvider) SetModel(model string) {
	p.model = anthropic.Model(model)
}

// Ping implements Provider.Ping by attempting to create a minimal request.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	// Anthropic doesn't have a ping/health endpoint, so we make a minimal request
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return WrapError("anthropic", fmt.Errorf("Anthropic ping failed: %w", err))
	}
	return nil
}

// convertToAnthropicMessages converts chat messages to Anthropic format.
// Returns the message array and any system blocks found in the history.
func convertToAnthropicMessages(messages []model.ChatMessage) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	anthropicMsgs := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			// Anthropic uses a separate system parameter, not in messages array
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})

		case model.RoleAssistant:
			anthropicMsgs = append(anthropicMsgs,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)),
			)

		default:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Attachments)+1)
			for _, a := range decodeAttachments("anthropic", msg) {
				switch {
				case a.IsPDF():
					blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: a.Base64}))
				case a.IsImage():
					blocks = append(blocks, anthropic.NewImageBlockBase64(a.MediaType, a.Base64))
				default:
					logDebug("anthropic cannot read attachment, dropping it", "name", a.Name, "type", a.MediaType)
				}
			}
			// Documents first, question last.
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			anthropicMsgs = append(anthropicMsgs, anthropic.NewUserMessage(blocks...))
		}
	}

	return anthropicMsgs, systemBlocks
}
