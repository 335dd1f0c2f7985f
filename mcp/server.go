// Package mcp exposes the relay to MCP clients as tools, so assistants can
// ask questions about a local PDF the same way the reader's chat panel does.
package mcp

import (
	"context"
	"fmt"
	"io"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"opendocs/model"
	"opendocs/relay"
	"opendocs/storage"
	"opendocs/ui"
)

const (
	AskDocumentTool     = "ask_document"
	RecentExchangesTool = "recent_exchanges"
)

// ExchangeLister reads back journaled exchanges. *storage.Journal implements it.
type ExchangeLister interface {
	Recent(ctx context.Context, limit int) ([]storage.ExchangeRecord, error)
}

// Options are the defaults applied to every tool call.
type Options struct {
	Version  string
	Provider string
	Model    string
	APIKey   string
	Journal  ExchangeLister // nil hides recent_exchanges
}

// Tools implements the MCP tool handlers on top of a Relay.
type Tools struct {
	relay *relay.Relay
	opts  Options
}

func NewTools(r *relay.Relay, opts Options) *Tools {
	return &Tools{relay: r, opts: opts}
}

// NewServer registers the tools on a new MCP server.
func NewServer(t *Tools) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("opendocs", t.opts.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	s.AddTool(mcptypes.NewTool(AskDocumentTool,
		mcptypes.WithDescription("Ask the configured AI provider a question about a PDF document. "+
			"Attach the file with file_path and/or pass extracted page text as context."),
		mcptypes.WithString("question", mcptypes.Required(), mcptypes.Description("The question to ask")),
		mcptypes.WithString("file_path", mcptypes.Description("Absolute path of the document to attach")),
		mcptypes.WithString("context", mcptypes.Description("Extracted document text the answer should rely on")),
		mcptypes.WithString("provider", mcptypes.Description("Provider id (gemini, anthropic, openai, openrouter, ollama)")),
		mcptypes.WithString("model", mcptypes.Description("Model name; empty uses the provider default")),
	), t.AskDocument)

	if t.opts.Journal != nil {
		s.AddTool(mcptypes.NewTool(RecentExchangesTool,
			mcptypes.WithDescription("List metadata of recent chat exchanges (no message content)."),
			mcptypes.WithNumber("limit", mcptypes.Description("Maximum number of exchanges, default 10")),
		), t.RecentExchanges)
	}

	return s
}

// ServeStdio runs s over in and out until ctx is done or in closes.
func ServeStdio(ctx context.Context, s *mcpserver.MCPServer, in io.Reader, out io.Writer) error {
	return mcpserver.NewStdioServer(s).Listen(ctx, in, out)
}

// AskDocument runs one exchange and returns the whole reply. Relay failures
// come back as tool errors carrying the user-facing message.
func (t *Tools) AskDocument(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcptypes.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(question) == "" {
		return mcptypes.NewToolResultError("question must not be empty"), nil
	}

	chat := model.ChatRequest{
		Messages:        []model.ChatMessage{{Role: model.RoleUser, Content: question}},
		APIKey:          t.opts.APIKey,
		DocumentContext: req.GetString("context", ""),
		FilePath:        req.GetString("file_path", ""),
		Provider:        req.GetString("provider", t.opts.Provider),
		Model:           req.GetString("model", t.opts.Model),
	}

	var reply strings.Builder
	var failure string
	err = t.relay.HandleChatRequest(ctx, chat, model.SinkFunc(func(e model.StreamEvent) error {
		switch e.Kind {
		case model.EventFragment:
			reply.WriteString(e.Text)
		case model.EventError:
			failure = e.Message
		}
		return nil
	}))

	if failure != "" {
		return mcptypes.NewToolResultError(failure), nil
	}
	if err != nil {
		return nil, err
	}
	return mcptypes.NewToolResultText(reply.String()), nil
}

// RecentExchanges formats the newest journal records, one per line.
func (t *Tools) RecentExchanges(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
	if t.opts.Journal == nil {
		return mcptypes.NewToolResultError("exchange journal is disabled"), nil
	}

	records, err := t.opts.Journal.Recent(ctx, req.GetInt("limit", 10))
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return mcptypes.NewToolResultText(ui.FormatExchanges(records)), nil
}
