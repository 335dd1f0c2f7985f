package provider

import (
	"encoding/base64"
	"fmt"
	"strings"

	"opendocs/model"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// DecodedAttachment is an attachment split out of its data URI.
type DecodedAttachment struct {
	Name      string
	MediaType string
	Base64    string
}

// Bytes returns the raw attachment content.
func (a DecodedAttachment) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Base64)
}

// IsImage reports whether the attachment is an image/* type.
func (a DecodedAttachment) IsImage() bool {
	return strings.HasPrefix(a.MediaType, "image/")
}

// IsPDF reports whether the attachment is a PDF document.
func (a DecodedAttachment) IsPDF() bool {
	return a.MediaType == "application/pdf"
}

// DecodeAttachment parses the "data:<mime>;base64,<data>" payload of an attachment.
// The attachment's ContentType wins over the type in the URI when both are set.
func DecodeAttachment(a model.Attachment) (DecodedAttachment, error) {
	rest, ok := strings.CutPrefix(a.Payload, "data:")
	if !ok {
		return DecodedAttachment{}, fmt.Errorf("attachment %q: payload is not a data URI", a.Name)
	}
	header, data, ok := strings.Cut(rest, ",")
	if !ok {
		return DecodedAttachment{}, fmt.Errorf("attachment %q: malformed data URI", a.Name)
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return DecodedAttachment{}, fmt.Errorf("attachment %q: data URI is not base64 encoded", a.Name)
	}
	if a.ContentType != "" {
		mediaType = a.ContentType
	}
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	return DecodedAttachment{Name: a.Name, MediaType: mediaType, Base64: data}, nil
}

// decodeAttachments decodes every attachment of msg, skipping (and logging) the
// ones that cannot be parsed.
func decodeAttachments(providerName string, msg model.ChatMessage) []DecodedAttachment {
	if len(msg.Attachments) == 0 {
		return nil
	}
	result := make([]DecodedAttachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		decoded, err := DecodeAttachment(a)
		if err != nil {
			logDebug("skipping attachment", "provider", providerName, "err", err)
			continue
		}
		result = append(result, decoded)
	}
	return result
}

// ConvertToOllamaMessages converts chat messages to Ollama api.Message values.
//
// The system prompt, when set, becomes a leading system message. Image
// attachments are sent as Images; Ollama has no document input so other
// attachments are dropped.
func ConvertToOllamaMessages(system string, messages []model.ChatMessage) []api.Message {
	result := make([]api.Message, 0, len(messages)+1)
	if system != "" {
		result = append(result, api.Message{Role: string(model.RoleSystem), Content: system})
	}

	for _, msg := range messages {
		out := api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		for _, a := range decodeAttachments("ollama", msg) {
			if !a.IsImage() {
				logDebug("ollama cannot read attachment, dropping it", "name", a.Name, "type", a.MediaType)
				continue
			}
			data, err := a.Bytes()
			if err != nil {
				logDebug("skipping undecodable image", "name", a.Name, "err", err)
				continue
			}
			out.Images = append(out.Images, api.ImageData(data))
		}
		result = append(result, out)
	}
	return result
}

// ConvertToOpenAIMessages converts chat messages to OpenAI chat completion params.
// Used by the OpenAI and OpenRouter adapters.
func ConvertToOpenAIMessages(system string, messages []model.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.SystemMessage(system))
	}

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			attachments := decodeAttachments("openai", msg)
			if len(attachments) == 0 {
				result = append(result, openai.UserMessage(msg.Content))
				continue
			}

			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(attachments)+1)
			parts = append(parts, openai.TextContentPart(msg.Content))
			for _, a := range attachments {
				dataURI := "data:" + a.MediaType + ";base64," + a.Base64
				if a.IsImage() {
					parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: dataURI,
					}))
					continue
				}
				parts = append(parts, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
					FileData: openai.String(dataURI),
					Filename: openai.String(a.Name),
				}))
			}
			result = append(result, openai.UserMessage(parts))
		}
	}

	return result
}
