package testutil

import (
	"context"
	"sync"

	"opendocs/model"
)

// MockProvider implements model.Provider for testing.
type MockProvider struct {
	// Configurable responses
	StreamFunc     func(ctx context.Context, req model.StreamRequest, callback model.StreamCallback) error
	ListModelsFunc func(ctx context.Context) ([]model.ModelInfo, error)
	PingFunc       func(ctx context.Context) error

	mu           sync.Mutex
	currentModel string
	requests     []model.StreamRequest
}

// NewMockProvider creates a mock provider with default implementations
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{
		currentModel: modelName,
	}
	mock.StreamFunc = mock.defaultStream
	mock.ListModelsFunc = mock.defaultListModels
	mock.PingFunc = mock.defaultPing
	return mock
}

// NewScriptedProvider returns a mock that streams chunks in order and then
// returns err.
func NewScriptedProvider(chunks []model.Chunk, err error) *MockProvider {
	mock := NewMockProvider("scripted-model")
	mock.StreamFunc = func(ctx context.Context, req model.StreamRequest, callback model.StreamCallback) error {
		for _, c := range chunks {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if cbErr := callback(c); cbErr != nil {
				return cbErr
			}
		}
		return err
	}
	return mock
}

// TextChunks builds ChunkText chunks from strings.
func TextChunks(texts ...string) []model.Chunk {
	chunks := make([]model.Chunk, len(texts))
	for i, s := range texts {
		chunks[i] = model.TextChunk(s)
	}
	return chunks
}

func (m *MockProvider) defaultStream(ctx context.Context, req model.StreamRequest, callback model.StreamCallback) error {
	// Default: echo back a mock response
	if len(req.Messages) > 0 {
		return callback(model.TextChunk("Mock response"))
	}
	return nil
}

func (m *MockProvider) defaultListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{
		{Name: "mock-model-1", Size: 1000, Provider: "mock"},
		{Name: "mock-model-2", Size: 2000, Provider: "mock"},
	}, nil
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) Stream(ctx context.Context, req model.StreamRequest, callback model.StreamCallback) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.StreamFunc(ctx, req, callback)
}

// Requests returns every StreamRequest the mock has received.
func (m *MockProvider) Requests() []model.StreamRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.StreamRequest(nil), m.requests...)
}

func (m *MockProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

func (m *MockProvider) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentModel
}

func (m *MockProvider) GetDisplayName() string {
	// Mock provider returns same value as GetModel (no prefix stripping)
	return m.GetModel()
}

func (m *MockProvider) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentModel = model
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
