// Package assembler turns a chat request into what a provider receives: the
// system instruction and the conversation, with the open document attached to
// the latest user turn.
package assembler

import (
	"context"
	"strings"

	"opendocs/config"
	"opendocs/model"
)

// Assembler builds provider-ready conversations.
type Assembler struct {
	files FileReader
}

// New returns an Assembler reading documents through files.
// A nil files uses an unlimited OSFileReader.
func New(files FileReader) *Assembler {
	if files == nil {
		files = OSFileReader{}
	}
	return &Assembler{files: files}
}

// BuildMessages returns a copy of history ready to send.
//
// When filePath is set the document is read and attached to the last user
// message only. A missing user message or a failed read leaves the
// conversation without the attachment; the exchange still proceeds.
// history itself is never modified.
func (a *Assembler) BuildMessages(ctx context.Context, history []model.ChatMessage, filePath string) []model.ChatMessage {
	messages := make([]model.ChatMessage, len(history))
	copy(messages, history)

	if filePath == "" {
		return messages
	}

	idx := model.LastUserIndex(messages)
	if idx < 0 {
		config.DebugLog.Warn("no user message to attach the document to", "path", filePath)
		return messages
	}

	data, err := a.files.ReadFile(ctx, filePath)
	if err != nil {
		config.DebugLog.Error("failed to read document for chat", "path", filePath, "err", err)
		return messages
	}

	attachment := NewAttachment(filePath, data)
	messages[idx] = messages[idx].WithAttachment(attachment)

	if config.Debug {
		config.DebugLog.Debug("attached document", "path", filePath, "type", attachment.ContentType, "bytes", len(data))
	}
	return messages
}

// Build assembles the system instruction and messages for req.
// customInstructions applies when the request carries none of its own.
func (a *Assembler) Build(ctx context.Context, req model.ChatRequest, customInstructions string) (string, []model.ChatMessage) {
	if strings.TrimSpace(req.CustomInstructions) != "" {
		customInstructions = req.CustomInstructions
	}
	system := BuildSystemMessage(req.DocumentContext, customInstructions)
	return system, a.BuildMessages(ctx, req.Messages, req.FilePath)
}
