package assembler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"opendocs/model"
)

// ErrAttachmentTooLarge is returned when a document exceeds the configured limit.
var ErrAttachmentTooLarge = errors.New("attachment exceeds size limit")

const defaultContentType = "application/pdf"

// FileReader loads the document a request refers to.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// OSFileReader reads documents from the local filesystem.
type OSFileReader struct {
	// MaxBytes caps the document size; zero means no limit.
	MaxBytes int64
}

// ReadFile implements FileReader.
func (r OSFileReader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("document path %s is a directory", path)
	}
	if r.MaxBytes > 0 && info.Size() > r.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrAttachmentTooLarge, filepath.Base(path), info.Size(), r.MaxBytes)
	}

	var src io.Reader = f
	if r.MaxBytes > 0 {
		// The file may grow between Stat and Read.
		src = io.LimitReader(f, r.MaxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if r.MaxBytes > 0 && int64(len(data)) > r.MaxBytes {
		return nil, fmt.Errorf("%w: %s", ErrAttachmentTooLarge, filepath.Base(path))
	}
	return data, nil
}

// ContentTypeFor guesses the media type of a document from its extension.
// Unknown extensions are treated as PDF.
func ContentTypeFor(path string) string {
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if ct == "" {
		return defaultContentType
	}
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ct
}

// AttachmentName is the name a document is sent under: "document.pdf" for PDFs,
// the file's base name otherwise.
func AttachmentName(path, contentType string) string {
	if contentType == defaultContentType {
		return "document.pdf"
	}
	return filepath.Base(path)
}

// EncodeDataURI returns "data:<contentType>;base64,<data>".
func EncodeDataURI(contentType string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(contentType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(contentType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// NewAttachment builds the attachment for the document at path.
func NewAttachment(path string, data []byte) model.Attachment {
	ct := ContentTypeFor(path)
	return model.Attachment{
		Name:        AttachmentName(path, ct),
		ContentType: ct,
		Payload:     EncodeDataURI(ct, data),
	}
}
