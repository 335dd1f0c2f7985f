package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"opendocs/model"
	"opendocs/provider/testutil"
)

// TestProviderContract defines the contract every provider must satisfy.
// Live adapters need network access; the mock covers the contract offline.
func TestProviderContract(t *testing.T) {
	tests := []struct {
		name     string
		provider model.Provider
	}{
		{"Mock", testutil.NewMockProvider("test-model")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Run("BasicStream", func(t *testing.T) {
				testProviderBasicStream(t, tt.provider)
			})
			t.Run("ModelManagement", func(t *testing.T) {
				testProviderModelManagement(t, tt.provider)
			})
			t.Run("HealthCheck", func(t *testing.T) {
				testProviderHealthCheck(t, tt.provider)
			})
		})
	}
}

func testProviderBasicStream(t *testing.T, p model.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var received string
	err := p.Stream(ctx, model.StreamRequest{Messages: testutil.SingleUserMessage("Hello")}, func(c model.Chunk) error {
		if c.Kind == model.ChunkText {
			received += c.Text
		}
		return nil
	})

	if err != nil {
		t.Errorf("Stream() error = %v", err)
	}
	if received == "" {
		t.Error("Stream() did not deliver any text")
	}
}

func testProviderModelManagement(t *testing.T, p model.Provider) {
	if p.GetModel() == "" {
		t.Error("GetModel() returned empty string")
	}

	newModel := "new-test-model"
	p.SetModel(newModel)

	if got := p.GetModel(); got != newModel {
		t.Errorf("After SetModel(%s), GetModel() = %s, want %s", newModel, got, newModel)
	}
}

func testProviderHealthCheck(t *testing.T, p model.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestScriptedProviderStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	p := testutil.NewScriptedProvider(testutil.TextChunks("a", "b", "c"), nil)

	var got []string
	err := p.Stream(context.Background(), model.StreamRequest{}, func(c model.Chunk) error {
		got = append(got, c.Text)
		if len(got) == 2 {
			return stop
		}
		return nil
	})

	if !errors.Is(err, stop) {
		t.Errorf("Stream() error = %v, want callback error", err)
	}
	if len(got) != 2 {
		t.Errorf("callback called %d times, want 2", len(got))
	}
	if n := len(p.Requests()); n != 1 {
		t.Errorf("Requests() = %d, want 1", n)
	}
}

// TestMockProviderImplementsInterface ensures mock provider implements the interface
func TestMockProviderImplementsInterface(t *testing.T) {
	var _ model.Provider = (*testutil.MockProvider)(nil)
}
