package assembler

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opendocs/model"
)

type stubReader struct {
	data  []byte
	err   error
	calls int
}

func (s *stubReader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	s.calls++
	return s.data, s.err
}

func history() []model.ChatMessage {
	return []model.ChatMessage{
		{Role: model.RoleUser, Content: "What is this?"},
		{Role: model.RoleAssistant, Content: "A report."},
		{Role: model.RoleUser, Content: "Summarize page 2."},
	}
}

func TestBuildMessagesAttachesToLastUserMessage(t *testing.T) {
	reader := &stubReader{data: []byte("%PDF-1.7")}
	a := New(reader)
	in := history()

	out := a.BuildMessages(context.Background(), in, "/docs/report.pdf")

	require.Len(t, out, 3)
	assert.Empty(t, out[0].Attachments)
	assert.Empty(t, out[1].Attachments)
	require.Len(t, out[2].Attachments, 1)

	att := out[2].Attachments[0]
	assert.Equal(t, "document.pdf", att.Name)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Equal(t, "data:application/pdf;base64,"+base64.StdEncoding.EncodeToString([]byte("%PDF-1.7")), att.Payload)

	// The caller's history is untouched.
	for _, m := range in {
		assert.Empty(t, m.Attachments)
	}
}

func TestBuildMessagesLastUserBeforeAssistant(t *testing.T) {
	in := history()[:2]
	out := New(&stubReader{data: []byte("x")}).BuildMessages(context.Background(), in, "/docs/a.pdf")

	require.Len(t, out[0].Attachments, 1)
	assert.Empty(t, out[1].Attachments)
}

func TestBuildMessagesWithoutUserMessage(t *testing.T) {
	reader := &stubReader{data: []byte("x")}
	in := []model.ChatMessage{{Role: model.RoleAssistant, Content: "Hi"}}

	out := New(reader).BuildMessages(context.Background(), in, "/docs/a.pdf")

	assert.Equal(t, in, out)
	assert.Zero(t, reader.calls, "document should not be read when there is nowhere to attach it")
}

func TestBuildMessagesReadFailureProceeds(t *testing.T) {
	reader := &stubReader{err: errors.New("permission denied")}

	out := New(reader).BuildMessages(context.Background(), history(), "/docs/a.pdf")

	assert.Equal(t, history(), out)
}

func TestBuildMessagesNoFile(t *testing.T) {
	reader := &stubReader{}
	out := New(reader).BuildMessages(context.Background(), history(), "")

	assert.Equal(t, history(), out)
	assert.Zero(t, reader.calls)
}

func TestBuildMessagesEmptyHistory(t *testing.T) {
	out := New(nil).BuildMessages(context.Background(), nil, "")
	assert.Empty(t, out)
}

func TestBuild(t *testing.T) {
	a := New(&stubReader{})

	system, msgs := a.Build(context.Background(), model.ChatRequest{
		Messages:        history(),
		DocumentContext: "Page 1: revenue grew.",
	}, "Answer in French.")

	assert.Contains(t, system, "Page 1: revenue grew.")
	assert.Contains(t, system, "Answer in French.")
	assert.Len(t, msgs, 3)

	system, _ = a.Build(context.Background(), model.ChatRequest{
		DocumentContext:    "ctx",
		CustomInstructions: "Use bullet points.",
	}, "Answer in French.")
	assert.Contains(t, system, "Use bullet points.")
	assert.NotContains(t, system, "Answer in French.")

	// Whitespace-only instructions on the request keep the configured default.
	system, _ = a.Build(context.Background(), model.ChatRequest{
		DocumentContext:    "ctx",
		CustomInstructions: "  \n\t",
	}, "Answer in French.")
	assert.Contains(t, system, "Answer in French.")
}

func TestBuildSystemMessage(t *testing.T) {
	t.Run("no context", func(t *testing.T) {
		assert.Equal(t, DefaultSystemMessage, BuildSystemMessage("", "ignored"))
	})

	t.Run("context", func(t *testing.T) {
		got := BuildSystemMessage("The sky is green.", "")

		assert.True(t, strings.HasPrefix(got, "You are OpenDocs AI"))
		assert.Contains(t, got, contextBegin+"\nThe sky is green.\n"+contextEnd)
		assert.True(t, strings.HasSuffix(got, "do not conflict with the principles above."))
		assert.NotContains(t, got, customBegin)
	})

	t.Run("blank custom instructions", func(t *testing.T) {
		assert.Equal(t, BuildSystemMessage("ctx", ""), BuildSystemMessage("ctx", "  \n\t"))
	})

	t.Run("custom instructions", func(t *testing.T) {
		got := BuildSystemMessage("ctx", "  Reply in haiku.  ")

		assert.True(t, strings.HasSuffix(got, "\n\n"+customBegin+"\nReply in haiku.\n"+customEnd))
		assert.True(t, strings.HasPrefix(got, "\nYou are OpenDocs AI"))
	})
}

func TestOSFileReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0600))

	data, err := OSFileReader{}.ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), data)

	_, err = OSFileReader{MaxBytes: 4}.ReadFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)

	_, err = OSFileReader{}.ReadFile(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)

	_, err = OSFileReader{}.ReadFile(context.Background(), dir)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = OSFileReader{}.ReadFile(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContentTypeAndName(t *testing.T) {
	tests := []struct {
		path     string
		wantType string
		wantName string
	}{
		{"/docs/Report.PDF", "application/pdf", "document.pdf"},
		{"/docs/scan.png", "image/png", "scan.png"},
		{"/docs/notes.txt", "text/plain", "notes.txt"},
		{"/docs/no-extension", "application/pdf", "document.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ct := ContentTypeFor(tt.path)
			assert.Equal(t, tt.wantType, ct)
			assert.Equal(t, tt.wantName, AttachmentName(tt.path, ct))
		})
	}
}

func TestEncodeDataURI(t *testing.T) {
	assert.Equal(t, "data:application/pdf;base64,aGk=", EncodeDataURI("application/pdf", []byte("hi")))
	assert.Equal(t, "data:image/png;base64,", EncodeDataURI("image/png", nil))
}
