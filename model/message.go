package model

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Attachment is a binary document carried alongside a message.
// Payload is a data URI ("data:<mime>;base64,<data>").
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Payload     string `json:"url"`
}

// ChatMessage represents a chat message in the conversation.
// Messages are values; use WithAttachment instead of mutating Attachments.
type ChatMessage struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// WithAttachment returns a copy of m with a appended to its attachments.
// The receiver's attachment slice is never shared with the result.
func (m ChatMessage) WithAttachment(a Attachment) ChatMessage {
	attachments := make([]Attachment, 0, len(m.Attachments)+1)
	attachments = append(attachments, m.Attachments...)
	attachments = append(attachments, a)
	m.Attachments = attachments
	return m
}

// ChatRequest is one user-initiated send. It is consumed exactly once by the relay.
type ChatRequest struct {
	ID                 string        `json:"requestId,omitempty"`
	Messages           []ChatMessage `json:"messages"`
	APIKey             string        `json:"apiKey"`
	DocumentContext    string        `json:"context,omitempty"`
	FilePath           string        `json:"filePath,omitempty"`
	Model              string        `json:"model,omitempty"`
	Provider           string        `json:"provider,omitempty"`
	CustomInstructions string        `json:"customInstructions,omitempty"`
}

// LastUserIndex returns the index of the most recent user message, or -1.
func LastUserIndex(messages []ChatMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}
