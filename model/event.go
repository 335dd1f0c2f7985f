package model

// EventKind tags a StreamEvent.
type EventKind string

const (
	EventFragment EventKind = "fragment"
	EventDone     EventKind = "done"
	EventError    EventKind = "error"
)

// StreamEvent is one step of an exchange: zero or more fragments followed by
// exactly one done or error event.
type StreamEvent struct {
	Kind      EventKind
	RequestID string
	Text      string // fragment payload
	Message   string // user-facing error message
}

// Fragment builds a fragment event carrying the next piece of the reply.
func Fragment(requestID, text string) StreamEvent {
	return StreamEvent{Kind: EventFragment, RequestID: requestID, Text: text}
}

// Done builds the successful terminal event.
func Done(requestID string) StreamEvent {
	return StreamEvent{Kind: EventDone, RequestID: requestID}
}

// Failure builds the failed terminal event. msg must already be user-facing.
func Failure(requestID, msg string) StreamEvent {
	return StreamEvent{Kind: EventError, RequestID: requestID, Message: msg}
}

// IsTerminal reports whether no further events follow e.
func (e StreamEvent) IsTerminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}

// EventSink receives the events of an exchange in emission order.
type EventSink interface {
	Emit(event StreamEvent) error
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(event StreamEvent) error

// Emit calls f(event).
func (f SinkFunc) Emit(event StreamEvent) error {
	return f(event)
}
