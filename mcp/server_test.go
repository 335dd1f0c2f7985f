package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opendocs/model"
	"opendocs/provider"
	"opendocs/provider/testutil"
	"opendocs/relay"
	"opendocs/storage"
)

type staticFactory struct {
	provider model.Provider
}

func (f staticFactory) Resolve(id string) (provider.ProviderType, error) {
	return provider.MapProviderIDToType(id), nil
}

func (f staticFactory) New(t provider.ProviderType, apiKey, modelName string) (model.Provider, error) {
	return f.provider, nil
}

type fakeJournal struct {
	records []storage.ExchangeRecord
	limit   int
}

func (j *fakeJournal) Recent(ctx context.Context, limit int) ([]storage.ExchangeRecord, error) {
	j.limit = limit
	return j.records, nil
}

func callRequest(name string, args map[string]any) mcptypes.CallToolRequest {
	return mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, res *mcptypes.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcptypes.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestAskDocument(t *testing.T) {
	p := testutil.NewScriptedProvider(testutil.TextChunks("The answer ", "is 42."), nil)
	tools := NewTools(relay.New(staticFactory{provider: p}), Options{Provider: "gemini", APIKey: "key"})

	res, err := tools.AskDocument(context.Background(), callRequest(AskDocumentTool, map[string]any{
		"question": "What is the answer?",
		"context":  "Page 3: the answer is 42.",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "The answer is 42.", resultText(t, res))

	reqs := p.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].System, "Page 3: the answer is 42.")
	assert.Equal(t, "What is the answer?", reqs[0].Messages[0].Content)
}

func TestAskDocumentFailures(t *testing.T) {
	p := testutil.NewScriptedProvider(nil, errors.New("quota exceeded"))
	tools := NewTools(relay.New(staticFactory{provider: p}), Options{APIKey: "key"})

	res, err := tools.AskDocument(context.Background(), callRequest(AskDocumentTool, map[string]any{"question": "hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, relay.RateLimitMessage, resultText(t, res))

	res, err = tools.AskDocument(context.Background(), callRequest(AskDocumentTool, map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tools.AskDocument(context.Background(), callRequest(AskDocumentTool, map[string]any{"question": "  "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestAskDocumentMissingKey(t *testing.T) {
	tools := NewTools(relay.New(staticFactory{provider: testutil.NewMockProvider("m")}), Options{Provider: "gemini"})

	res, err := tools.AskDocument(context.Background(), callRequest(AskDocumentTool, map[string]any{"question": "hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "API key")
}

func TestRecentExchanges(t *testing.T) {
	journal := &fakeJournal{records: []storage.ExchangeRecord{
		{ID: "a", Provider: "gemini", Model: "gemini-2.0-flash-lite", Fragments: 3, Outcome: storage.OutcomeDone,
			StartedAt: time.Now(), Duration: 1500 * time.Millisecond},
		{ID: "b", Provider: "openai", Model: "gpt-4o-mini", Outcome: storage.OutcomeError, Category: "rate_limit",
			StartedAt: time.Now()},
	}}
	tools := NewTools(relay.New(staticFactory{}), Options{Journal: journal})

	res, err := tools.RecentExchanges(context.Background(), callRequest(RecentExchangesTool, map[string]any{"limit": 5}))
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, "gemini/gemini-2.0-flash-lite  done  3 chunks  1.5s")
	assert.Contains(t, text, "openai/gpt-4o-mini  error (rate_limit)")
	assert.Equal(t, 5, journal.limit)

	res, err = NewTools(relay.New(staticFactory{}), Options{}).RecentExchanges(context.Background(), callRequest(RecentExchangesTool, nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func listTools(t *testing.T, tools *Tools) string {
	t.Helper()
	s := NewServer(tools)
	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

func TestNewServerRegistersTools(t *testing.T) {
	listed := listTools(t, NewTools(relay.New(staticFactory{}), Options{Version: "test"}))
	assert.Contains(t, listed, AskDocumentTool)
	assert.NotContains(t, listed, RecentExchangesTool)

	listed = listTools(t, NewTools(relay.New(staticFactory{}), Options{Version: "test", Journal: &fakeJournal{}}))
	assert.Contains(t, listed, RecentExchangesTool)
}
