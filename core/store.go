package core

import (
	"context"
	"time"
)

// AgentRecord is a persisted AI agent identity.
type AgentRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Persona    string    `json:"persona,omitempty"`
	AvatarPath string    `json:"avatar_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlacedItem is an item placed on a world cell in a world definition.
type PlacedItem struct {
	Pos  Position `json:"pos"`
	Kind string   `json:"kind"`
}

// WorldRecord is a persisted world definition: grid dimensions, obstacle
// layout, placed items and agent start position.
type WorldRecord struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	Obstacles []Position   `json:"obstacles,omitempty"`
	Items     []PlacedItem `json:"items,omitempty"`
	Start     Position     `json:"start"`
	CreatedAt time.Time    `json:"created_at"`
}

// ToolRecord is a persisted tool definition authored by a user: name,
// description and parameter schema. Execution is resolved at configuration
// time by binding the name to a registered handler, never by reflection.
type ToolRecord struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Store is the durable persistence surface for agents, worlds and tool
// definitions. Implementations must be safe for concurrent use. Missing
// entities are reported by wrapping ErrNotFound.
type Store interface {
	PutAgent(ctx context.Context, a AgentRecord) error
	GetAgent(ctx context.Context, id string) (AgentRecord, error)
	ListAgents(ctx context.Context) ([]AgentRecord, error)
	DeleteAgent(ctx context.Context, id string) error

	PutWorld(ctx context.Context, w WorldRecord) error
	GetWorld(ctx context.Context, id string) (WorldRecord, error)
	ListWorlds(ctx context.Context) ([]WorldRecord, error)
	DeleteWorld(ctx context.Context, id string) error

	PutTool(ctx context.Context, t ToolRecord) error
	GetTool(ctx context.Context, name string) (ToolRecord, error)
	ListTools(ctx context.Context) ([]ToolRecord, error)
	DeleteTool(ctx context.Context, name string) error
}

// WorldStore holds live world state and is the single mutation path for it.
// Apply must serialize callers per world id so concurrent deployments of the
// same world never interleave position updates.
type WorldStore interface {
	// Get returns a copy of the current snapshot, or ErrNotFound.
	Get(ctx context.Context, worldID string) (Snapshot, error)
	// Apply executes a named action against the world and returns the minimal
	// delta. Failures are reported as *ActionError; they never panic and are
	// non-fatal to the caller's deployment.
	Apply(ctx context.Context, worldID, action string, args map[string]any) (Delta, error)
}
