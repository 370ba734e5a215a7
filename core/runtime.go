package core

import (
	"context"
	"encoding/json"
)

// ToolDefinition declaratively exposes a callable tool to a runtime.
// Parameters is a JSON Schema object (minimal subset).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Toolbox is the set of tools handed to a runtime for one deployment.
// Implementations must be safe for concurrent use.
type Toolbox interface {
	// Definitions lists the declared tools in registration order.
	Definitions() []ToolDefinition
	// Execute runs the named tool with raw JSON arguments.
	Execute(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// Task is the input to one runtime execution: the agent identity, the user
// prompt and the tools the runtime may call.
type Task struct {
	DeploymentID string
	AgentName    string
	Persona      string
	Prompt       string
	Toolbox      Toolbox
}

// Runtime adapts an external agent execution engine (an LLM SDK, a scripted
// sequence) behind a stable interface, isolating vendor quirks in a single
// adapter per provider.
//
// Contract: the turns channel delivers events in production order and is
// closed when the execution ends. The errors channel carries at most one
// transport-level failure (buffered size 1, closed after send or none); after
// a failure no further turns are delivered. The immediate error return covers
// startup failures only. Implementations stop producing once ctx is done.
type Runtime interface {
	Execute(ctx context.Context, task Task) (<-chan TurnEvent, <-chan error, error)
}
