package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"opendocs/model"

	"github.com/ollama/ollama/api"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.1:latest"
)

type Client struct {
	client  *api.Client
	model   string
	baseURL string
}

// StreamCallback receives each streamed reply piece. thinking is the model's
// reasoning output, when the model produces any.
type StreamCallback func(content, thinking string) error

func NewClient(baseURL, model string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid Ollama URL: %q needs a scheme and host", baseURL)
	}

	client := api.NewClient(parsedURL, http.DefaultClient)

	return &Client{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// Chat streams a chat completion for messages using modelName, or the
// client's model when modelName is empty.
func (c *Client) Chat(ctx context.Context, modelName string, messages []api.Message, callback StreamCallback) error {
	if modelName == "" {
		modelName = c.model
	}
	req := &api.ChatRequest{
		Model:    modelName,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(true),
	}

	respFunc := func(resp api.ChatResponse) error {
		if callback != nil {
			return callback(resp.Message.Content, resp.Message.Thinking)
		}
		return nil
	}

	return c.client.Chat(ctx, req, respFunc)
}

func (c *Client) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			Name:         m.Name,
			Size:         m.Size,
			Provider:     "ollama",
			InternalName: m.Name, // Ollama uses same name for display and API
		}
	}

	return models, nil
}

func (c *Client) SetModel(model string) {
	c.model = model
}

func (c *Client) GetModel() string {
	return c.model
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}
