// Package bridge carries chat exchanges between the UI process and the relay.
//
// Both directions use the same envelope. The UI sends chat-stream (and
// chat-cancel); the relay answers with any number of chat-chunk envelopes
// followed by one chat-done or chat-error, all tagged with the request ID.
package bridge

import (
	"errors"
	"fmt"

	"opendocs/model"
)

// Envelope types.
const (
	TypeChatStream = "chat-stream"
	TypeChatCancel = "chat-cancel"
	TypeChatChunk  = "chat-chunk"
	TypeChatDone   = "chat-done"
	TypeChatError  = "chat-error"
)

var (
	// ErrClosed is returned by a Client after Close.
	ErrClosed = errors.New("bridge: client closed")

	// ErrMalformedEnvelope marks input that could not be decoded. The
	// connection stays usable.
	ErrMalformedEnvelope = errors.New("bridge: malformed envelope")
)

// Envelope is one message on the wire.
type Envelope struct {
	Type      string             `json:"type"`
	RequestID string             `json:"requestId,omitempty"`
	Request   *model.ChatRequest `json:"request,omitempty"`
	Text      string             `json:"text,omitempty"`
	Message   string             `json:"message,omitempty"`
}

// EnvelopeFor encodes a relay event for the wire.
func EnvelopeFor(e model.StreamEvent) Envelope {
	switch e.Kind {
	case model.EventFragment:
		return Envelope{Type: TypeChatChunk, RequestID: e.RequestID, Text: e.Text}
	case model.EventDone:
		return Envelope{Type: TypeChatDone, RequestID: e.RequestID}
	default:
		return Envelope{Type: TypeChatError, RequestID: e.RequestID, Message: e.Message}
	}
}

// Event decodes a relay-to-UI envelope.
func (env Envelope) Event() (model.StreamEvent, error) {
	switch env.Type {
	case TypeChatChunk:
		return model.Fragment(env.RequestID, env.Text), nil
	case TypeChatDone:
		return model.Done(env.RequestID), nil
	case TypeChatError:
		return model.Failure(env.RequestID, env.Message), nil
	default:
		return model.StreamEvent{}, fmt.Errorf("%w: %q is not a relay event", ErrMalformedEnvelope, env.Type)
	}
}
