package provider

import (
	"context"
	"fmt"
	"strings"

	"opendocs/model"

	"google.golang.org/genai"
)

// DefaultGeminiModel is the model used when neither the request nor the
// configuration names one.
const DefaultGeminiModel = "gemini-2.0-flash-lite"

// GeminiProvider implements the Provider interface using Google's genai SDK
// against the Gemini Developer API.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	baseURL string
}

// NewGeminiProvider creates a new Gemini provider instance.
//
// Parameters:
//   - baseURL: API endpoint override (empty = SDK default)
//   - apiKey: Gemini API key (required)
//   - model: Initial model to use (default: DefaultGeminiModel)
func NewGeminiProvider(baseURL, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	// NewClient does no I/O with an explicit API key and backend.
	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Stream implements Provider.Stream using GenerateContentStream.
func (p *GeminiProvider) Stream(ctx context.Context, req model.StreamRequest, callback model.StreamCallback) error {
	modelName := p.model
	if req.Model != "" {
		modelName = req.Model
	}

	contents, err := convertToGeminiContents(req.Messages)
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}

	var genCfg *genai.GenerateContentConfig
	if req.System != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}

	for resp, err := range p.client.Models.GenerateContentStream(ctx, modelName, contents, genCfg) {
		if err != nil {
			return WrapError("gemini", err)
		}
		for _, chunk := range geminiChunks(resp) {
			if err := callback(chunk); err != nil {
				return err
			}
		}
	}

	return nil
}

// geminiChunks splits one streamed response into chunks. Only non-thought
// text parts become ChunkText.
func geminiChunks(resp *genai.GenerateContentResponse) []model.Chunk {
	if resp == nil || len(resp.Candidates) == 0 {
		return []model.Chunk{{Kind: model.ChunkOther}}
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return []model.Chunk{{Kind: model.ChunkOther}}
	}

	chunks := make([]model.Chunk, 0, len(candidate.Content.Parts))
	for _, part := range candidate.Content.Parts {
		switch {
		case part == nil:
			continue
		case part.Thought:
			chunks = append(chunks, model.Chunk{Kind: model.ChunkThought, Text: part.Text})
		case part.Text != "":
			chunks = append(chunks, model.TextChunk(part.Text))
		default:
			chunks = append(chunks, model.Chunk{Kind: model.ChunkOther})
		}
	}
	return chunks
}

// convertToGeminiContents maps chat roles onto Gemini's user/model roles and
// turns attachments into inline-data parts.
func convertToGeminiContents(messages []model.ChatMessage) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		var role genai.Role = genai.RoleUser
		if msg.Role == model.RoleAssistant {
			role = genai.RoleModel
		}

		parts := []*genai.Part{genai.NewPartFromText(msg.Content)}
		for _, a := range decodeAttachments("gemini", msg) {
			data, err := a.Bytes()
			if err != nil {
				return nil, fmt.Errorf("attachment %q: %w", a.Name, err)
			}
			parts = append(parts, genai.NewPartFromBytes(data, a.MediaType))
		}

		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents, nil
}

// ListModels implements Provider.ListModels.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	var result []model.ModelInfo
	for m, err := range p.client.Models.All(ctx) {
		if err != nil {
			return nil, WrapError("gemini", fmt.Errorf("failed to list Gemini models: %w", err))
		}
		name := strings.TrimPrefix(m.Name, "models/")
		result = append(result, model.ModelInfo{
			Name:         name,
			InternalName: name,
			Provider:     "gemini",
		})
	}
	return result, nil
}

// GetModel implements Provider.GetModel.
func (p *GeminiProvider) GetModel() string {
	return p.model
}

// GetDisplayName implements Provider.GetDisplayName.
func (p *GeminiProvider) GetDisplayName() string {
	return p.model
}

// SetModel implements Provider.SetModel.
func (p *GeminiProvider) SetModel(model string) {
	p.model = model
}

// Ping implements Provider.Ping by fetching the current model's metadata.
func (p *GeminiProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.model, nil); err != nil {
		return WrapError("gemini", fmt.Errorf("Gemini ping failed: %w", err))
	}
	return nil
}
