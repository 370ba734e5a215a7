package core

import (
	"encoding/json"

	"github.com/google/uuid"
)

// TurnEvent is one unit of output from an agent runtime during a single
// deployment. Concrete turn types implement the unexported isTurnEvent marker
// enabling a closed set, so the streamer can dispatch exhaustively instead of
// inspecting runtime types. Arrival order is the only sequencing signal.
type TurnEvent interface{ isTurnEvent() }

// ReasoningTurn carries intermediate reasoning text surfaced by the runtime.
type ReasoningTurn struct {
	Text string
}

func (ReasoningTurn) isTurnEvent() {}

// TextTurn carries one chunk of assistant text. Chunks are never merged;
// concatenation is the client's responsibility.
type TextTurn struct {
	Text string
}

func (TextTurn) isTurnEvent() {}

// ToolCallTurn records the runtime requesting execution of a named tool.
type ToolCallTurn struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

func (ToolCallTurn) isTurnEvent() {}

// ToolResultTurn records the outcome of a previously issued tool call.
// Output can be any JSON-serializable value; IsError marks handler failure.
type ToolResultTurn struct {
	ID      string
	Name    string
	Output  any
	IsError bool
}

func (ToolResultTurn) isTurnEvent() {}

// TerminalReason classifies how a runtime execution ended.
type TerminalReason string

const (
	// TerminalCompleted signals normal completion of the agent turn sequence.
	TerminalCompleted TerminalReason = "completed"
	// TerminalFailed signals the runtime ended the execution on a failure.
	TerminalFailed TerminalReason = "failed"
)

// TerminalTurn closes a runtime execution. No further turns follow it.
type TerminalTurn struct {
	Reason  TerminalReason
	Message string
}

func (TerminalTurn) isTurnEvent() {}

// NewID returns a unique identifier used for deployments, tool calls and
// persisted entities.
func NewID() string { return uuid.NewString() }
