package core

import (
	"encoding/json"
	"fmt"
)

// EventType is the fixed wire name of a stream event. Consumers must treat
// unknown future types as ignorable.
type EventType string

const (
	EventThinking    EventType = "thinking"
	EventText        EventType = "text"
	EventToolCall    EventType = "tool_call"
	EventToolResult  EventType = "tool_result"
	EventWorldUpdate EventType = "world_update"
	EventComplete    EventType = "complete"
	EventError       EventType = "error"
)

// StreamEvent is one unit of output sent to a client over a live deployment
// connection. Each event serializes to a single self-contained JSON document;
// no cross-message state is needed to decode one. The set is closed via the
// unexported marker so transports can switch exhaustively.
type StreamEvent interface {
	Type() EventType
	isStreamEvent()
}

// ThinkingEvent relays runtime reasoning text.
type ThinkingEvent struct {
	Text string `json:"text"`
}

func (ThinkingEvent) Type() EventType { return EventThinking }
func (ThinkingEvent) isStreamEvent()  {}

// TextEvent relays one assistant text chunk, forwarded as it arrived.
type TextEvent struct {
	Text string `json:"text"`
}

func (TextEvent) Type() EventType { return EventText }
func (TextEvent) isStreamEvent()  {}

// ToolCallEvent relays a tool invocation request verbatim.
type ToolCallEvent struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func (ToolCallEvent) Type() EventType { return EventToolCall }
func (ToolCallEvent) isStreamEvent()  {}

// ToolResultEvent relays the outcome of a tool invocation.
type ToolResultEvent struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Result  any    `json:"result,omitempty"`
	IsError bool   `json:"is_error"`
}

func (ToolResultEvent) Type() EventType { return EventToolResult }
func (ToolResultEvent) isStreamEvent()  {}

// WorldUpdateEvent carries the minimal world delta produced by a successfully
// applied world-affecting action. It always precedes the ToolResultEvent of
// the action that produced it.
type WorldUpdateEvent struct {
	WorldID string `json:"world_id"`
	Delta   Delta  `json:"delta"`
}

func (WorldUpdateEvent) Type() EventType { return EventWorldUpdate }
func (WorldUpdateEvent) isStreamEvent()  {}

// CompleteEvent terminates a stream after normal completion. Exactly one
// terminal-class event (Complete or fatal Error) ends every stream.
type CompleteEvent struct {
	Summary string `json:"summary"`
}

func (CompleteEvent) Type() EventType { return EventComplete }
func (CompleteEvent) isStreamEvent()  {}

// ErrorEvent reports a failure. Fatal errors terminate the stream; non-fatal
// ones are informational and the deployment continues.
type ErrorEvent struct {
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

func (ErrorEvent) Type() EventType { return EventError }
func (ErrorEvent) isStreamEvent()  {}

// Envelope is the transport-agnostic JSON framing of a StreamEvent, used by
// line-delimited transports (websocket, NDJSON). SSE carries the type in the
// frame's event field instead.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeEvent serializes the event payload to its self-contained JSON document.
func EncodeEvent(ev StreamEvent) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Type(), err)
	}
	return b, nil
}

// EncodeEnvelope wraps the event in a typed envelope for non-SSE transports.
func EncodeEnvelope(ev StreamEvent) ([]byte, error) {
	data, err := EncodeEvent(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: ev.Type(), Data: data})
}
