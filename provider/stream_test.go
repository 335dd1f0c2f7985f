package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"opendocs/model"
	"opendocs/provider/testutil"

	"google.golang.org/genai"
)

func collectText(t *testing.T, p model.Provider, req model.StreamRequest) ([]string, error) {
	t.Helper()
	var fragments []string
	err := p.Stream(context.Background(), req, func(c model.Chunk) error {
		if c.Kind == model.ChunkText {
			fragments = append(fragments, c.Text)
		}
		return nil
	})
	return fragments, err
}

func TestOllamaStream(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range []string{
			`{"model":"llama3.1","message":{"role":"assistant","content":"","thinking":"pondering"},"done":false}`,
			`{"model":"llama3.1","message":{"role":"assistant","content":"Hel"},"done":false}`,
			`{"model":"llama3.1","message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"model":"llama3.1","message":{"role":"assistant","content":""},"done":true}`,
		} {
			fmt.Fprintln(w, line)
		}
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3.1")
	if err != nil {
		t.Fatal(err)
	}

	fragments, err := collectText(t, p, model.StreamRequest{
		System:   "Be brief.",
		Messages: testutil.SingleUserMessage("Hi"),
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if len(fragments) != 2 || fragments[0] != "Hel" || fragments[1] != "lo" {
		t.Errorf("fragments = %q, want [Hel lo]", fragments)
	}

	msgs, _ := gotReq["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("server saw %d messages, want system + user", len(msgs))
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("first message role = %v, want system", first["role"])
	}
}

func TestOllamaStreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"too many requests"}`)
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3.1")
	if err != nil {
		t.Fatal(err)
	}

	fragments, err := collectText(t, p, model.StreamRequest{Messages: testutil.SingleUserMessage("Hi")})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(fragments) != 0 {
		t.Errorf("got fragments %q before the error", fragments)
	}
	if KindOf(err) != KindRateLimit {
		t.Errorf("KindOf = %s, want rate_limit", KindOf(err))
	}
}

func TestOllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewOllamaProvider(url, "llama3.1")
	if err != nil {
		t.Fatal(err)
	}
	_, err = collectText(t, p, model.StreamRequest{Messages: testutil.SingleUserMessage("Hi")})
	if err == nil {
		t.Fatal("expected error from a closed server")
	}
	if KindOf(err) != KindNetwork {
		t.Errorf("KindOf = %s, want network (%v)", KindOf(err), err)
	}
}

func sseServer(t *testing.T, status int, events []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, e := range events {
			fmt.Fprintf(w, "data: %s\n\n", e)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func openAIChunk(content string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

func TestOpenAIStream(t *testing.T) {
	srv := sseServer(t, http.StatusOK, []string{
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`,
		openAIChunk("Hel"),
		openAIChunk("lo"),
		`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
	})
	defer srv.Close()

	p, err := NewOpenAIProvider(srv.URL, "test-key", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}

	fragments, err := collectText(t, p, model.StreamRequest{Messages: testutil.SingleUserMessage("Hi")})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if len(fragments) != 2 || fragments[0] != "Hel" || fragments[1] != "lo" {
		t.Errorf("fragments = %q, want [Hel lo]", fragments)
	}
}

func TestOpenRouterRateLimit(t *testing.T) {
	srv := sseServer(t, http.StatusTooManyRequests, nil)
	defer srv.Close()

	p, err := NewOpenRouterProvider(srv.URL, "test-key", "google/gemini-2.0-flash-lite-001")
	if err != nil {
		t.Fatal(err)
	}

	fragments, err := collectText(t, p, model.StreamRequest{Messages: testutil.SingleUserMessage("Hi")})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(fragments) != 0 {
		t.Errorf("got fragments %q", fragments)
	}
	if KindOf(err) != KindRateLimit {
		t.Errorf("KindOf = %s, want rate_limit", KindOf(err))
	}
}

func TestGeminiChunks(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Hel"},
				{FunctionCall: &genai.FunctionCall{Name: "lookup"}},
				nil,
			}},
		}},
	}

	chunks := geminiChunks(resp)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	wantKinds := []model.ChunkKind{model.ChunkThought, model.ChunkText, model.ChunkOther}
	for i, c := range chunks {
		if c.Kind != wantKinds[i] {
			t.Errorf("chunk %d kind = %d, want %d", i, c.Kind, wantKinds[i])
		}
	}

	if got := geminiChunks(&genai.GenerateContentResponse{}); len(got) != 1 || got[0].Kind != model.ChunkOther {
		t.Errorf("empty response chunks = %+v", got)
	}
}

func TestStripProviderPrefix(t *testing.T) {
	tests := map[string]string{
		"meta-llama/llama-3.2-90b-instruct": "llama-3.2-90b-instruct",
		"google/gemini-2.0-flash-lite-001":  "gemini-2.0-flash-lite-001",
		"gpt-4o-mini":                       "gpt-4o-mini",
	}
	for in, want := range tests {
		if got := stripProviderPrefix(in); got != want {
			t.Errorf("stripProviderPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
