package testutil

import (
	"encoding/base64"

	"opendocs/model"
)

// SamplePDF is a minimal byte sequence with a PDF header.
var SamplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

// TestMessages returns a sample conversation for testing
func TestMessages() []model.ChatMessage {
	return []model.ChatMessage{
		{Role: model.RoleUser, Content: "Hello, what is this document about?"},
		{Role: model.RoleAssistant, Content: "It describes a quarterly budget."},
		{Role: model.RoleUser, Content: "Summarize the second section."},
	}
}

// SingleUserMessage returns a single user message for simple tests
func SingleUserMessage(content string) []model.ChatMessage {
	return []model.ChatMessage{
		{Role: model.RoleUser, Content: content},
	}
}

// PDFAttachment returns SamplePDF as a data URI attachment.
func PDFAttachment() model.Attachment {
	return model.Attachment{
		Name:        "document.pdf",
		ContentType: "application/pdf",
		Payload:     "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(SamplePDF),
	}
}

// ImageAttachment returns a tiny PNG-typed data URI attachment.
func ImageAttachment() model.Attachment {
	data := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return model.Attachment{
		Name:        "page.png",
		ContentType: "image/png",
		Payload:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
	}
}

// SystemMessage returns a system message for testing
func SystemMessage(content string) model.ChatMessage {
	return model.ChatMessage{
		Role:    model.RoleSystem,
		Content: content,
	}
}
