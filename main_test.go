package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opendocs/bridge"
	"opendocs/config"
	"opendocs/model"
	"opendocs/provider"
	"opendocs/provider/testutil"
	"opendocs/relay"
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

func question(text string) model.ChatRequest {
	return model.ChatRequest{
		APIKey:   "key",
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: text}},
	}
}

func TestRunChatStreams(t *testing.T) {
	r := relay.New(staticFactory{provider: testutil.NewScriptedProvider(testutil.TextChunks("Hel", "lo"), nil)})
	var out bytes.Buffer

	reply, err := runChat(context.Background(), r, question("hi"), &out, true)
	require.NoError(t, err)
	assert.Equal(t, "Hello", reply)
	assert.Equal(t, "Hello\n", out.String())
}

func TestRunChatWithoutStreaming(t *testing.T) {
	r := relay.New(staticFactory{provider: testutil.NewScriptedProvider(testutil.TextChunks("# Title"), nil)})
	var out bytes.Buffer

	reply, err := runChat(context.Background(), r, question("hi"), &out, false)
	require.NoError(t, err)
	assert.Equal(t, "# Title", reply)
	assert.Empty(t, out.String())
}

func TestRunChatFailure(t *testing.T) {
	r := relay.New(staticFactory{provider: testutil.NewScriptedProvider(nil, errors.New("no such host"))})

	_, err := runChat(context.Background(), r, question("hi"), &bytes.Buffer{}, true)
	require.Error(t, err)
	assert.Equal(t, relay.NetworkMessage, err.Error())
}

func TestRunChatRequestTooLarge(t *testing.T) {
	r := relay.New(staticFactory{provider: testutil.NewScriptedProvider(testutil.TextChunks("ok"), nil)})
	req := question("summarize")
	req.DocumentContext = strings.Repeat("page text ", 20_000)

	_, err := runChat(context.Background(), r, req, &bytes.Buffer{}, true, bridge.WithMaxEnvelopeBytes(64<<10))
	require.Error(t, err)
	assert.Equal(t, bridge.RequestTooLargeMessage, err.Error())

	// The default limit carries the same document.
	reply, err := runChat(context.Background(), r, req, &bytes.Buffer{}, true)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestRunChatInterruptKeepsPartialReply(t *testing.T) {
	started := make(chan struct{})
	p := testutil.NewMockProvider("slow")
	p.StreamFunc = func(ctx context.Context, req model.StreamRequest, cb model.StreamCallback) error {
		if err := cb(model.TextChunk("partial")); err != nil {
			return err
		}
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	r := relay.New(staticFactory{provider: p})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	done := make(chan struct{})
	var reply string
	var err error
	go func() {
		defer close(done)
		reply, err = runChat(ctx, r, question("hi"), &bytes.Buffer{}, true)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runChat did not return after interrupt")
	}
	require.NoError(t, err)
	assert.Equal(t, "partial", reply)
}

func TestServeNeedsATransport(t *testing.T) {
	err := serve(context.Background(), &bridge.Server{}, false, "", "/ws", nil)
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	r := relay.New(staticFactory{provider: testutil.NewMockProvider("m")})
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- serve(ctx, &bridge.Server{Relay: r}, false, "127.0.0.1:0", "/ws", nil) }()

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

// withDataDir points configuration at a temporary directory.
func withDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("OPENDOCS_CONFIG_DIR", filepath.Join(dir, "config"))
	t.Setenv("OPENDOCS_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("OPENDOCS_PROVIDER", "")
	t.Setenv("OPENDOCS_MODEL", "")
	t.Setenv("OPENDOCS_LISTEN", "")
	return filepath.Join(dir, "data")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "opendocs "+Version+"\n", out)
}

func TestProvidersCommand(t *testing.T) {
	dataDir := withDataDir(t)

	out, err := execute(t, "providers")
	require.NoError(t, err)
	for _, id := range config.KnownProviders {
		assert.Contains(t, out, id)
	}
	assert.Contains(t, out, config.DefaultProviderID+" (default)")

	_, err = execute(t, "providers", "set", "ollama", "enabled", "false")
	require.NoError(t, err)

	cfg, err := config.LoadUserConfig(dataDir)
	require.NoError(t, err)
	for _, p := range cfg.Providers {
		if p.ID == "ollama" {
			assert.False(t, p.Enabled)
		}
	}

	_, err = execute(t, "providers", "set", "bard", "enabled", "true")
	assert.Error(t, err)
}

func TestHistoryCommandRequiresJournal(t *testing.T) {
	withDataDir(t)

	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal is disabled")
}

func TestHistoryCommand(t *testing.T) {
	dataDir := withDataDir(t)
	require.NoError(t, os.MkdirAll(dataDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte("[relay]\ndefault_provider = \"gemini\"\njournal = true\n"), 0600))

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "No exchanges recorded."), out)
}

func TestChatCommandRequiresQuestion(t *testing.T) {
	_, err := execute(t, "chat")
	assert.Error(t, err)
}
