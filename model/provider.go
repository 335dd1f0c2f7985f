package model

import "context"

// Provider abstracts remote generative-model APIs (Gemini, Anthropic, OpenAI,
// OpenRouter, Ollama) using provider-agnostic types from this package.
//
// This interface is defined in the model package (not provider package) to avoid
// import cycles: provider implementations import model, and the relay can use the
// Provider interface without importing every SDK.
type Provider interface {
	// Stream sends the conversation and delivers the reply chunk by chunk.
	// Implementations must not retry and must stop when ctx is done or the
	// callback returns an error.
	Stream(ctx context.Context, req StreamRequest, callback StreamCallback) error

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the currently selected model name (InternalName for API calls).
	GetModel() string

	// GetDisplayName returns the model name formatted for display.
	// For OpenRouter, this strips the vendor prefix (e.g., "google/gemini-2.0-flash" → "gemini-2.0-flash").
	GetDisplayName() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable and the credentials are accepted.
	Ping(ctx context.Context) error
}

// StreamRequest is what the relay hands to a provider for one exchange.
type StreamRequest struct {
	Model    string // empty means the provider's current model
	System   string
	Messages []ChatMessage
}

// ChunkKind distinguishes generated text from everything else a provider may stream.
type ChunkKind int

const (
	ChunkText    ChunkKind = iota
	ChunkThought           // reasoning output the user did not ask to see
	ChunkOther             // tool calls, empty parts, metadata
)

// Chunk is one item of a provider stream.
type Chunk struct {
	Kind ChunkKind
	Text string
}

// TextChunk is shorthand for a ChunkText chunk.
func TextChunk(text string) Chunk {
	return Chunk{Kind: ChunkText, Text: text}
}

// StreamCallback is called for each chunk of streamed response.
type StreamCallback func(chunk Chunk) error

// ModelInfo describes a model offered by a provider.
type ModelInfo struct {
	Name         string // Display name (stripped for OpenRouter)
	Size         int64
	Provider     string // Provider ID: "gemini", "ollama", "openrouter", "anthropic", "openai"
	InternalName string // Full API name (e.g., "google/gemini-2.0-flash-001" for OpenRouter)
}
