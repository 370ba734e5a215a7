package world

import (
	"fmt"
	"strings"

	"github.com/hupe1980/aicraft/core"
)

// ApplyFunc mutates a snapshot in place and returns the minimal delta. It must
// leave the snapshot untouched when returning an error.
type ApplyFunc func(s *core.Snapshot, args map[string]any) (core.Delta, error)

// ActionSpec declares one action: its tool-facing schema and whether applying
// it affects world state. The WorldAffecting flag is the explicit, versioned
// classification the deployment streamer consults; tool names are never
// pattern-matched.
type ActionSpec struct {
	Name           string
	Description    string
	WorldAffecting bool
	Parameters     map[string]any
	Apply          ApplyFunc
}

// ActionSet is a registry of action specs keyed by name, preserving
// registration order for tool definition listings.
type ActionSet struct {
	order []string
	specs map[string]ActionSpec
}

// NewActionSet builds a registry from the given specs.
func NewActionSet(specs ...ActionSpec) *ActionSet {
	as := &ActionSet{specs: make(map[string]ActionSpec, len(specs))}
	for _, spec := range specs {
		as.Register(spec)
	}
	return as
}

// Register adds or replaces a spec.
func (as *ActionSet) Register(spec ActionSpec) {
	if _, exists := as.specs[spec.Name]; !exists {
		as.order = append(as.order, spec.Name)
	}
	as.specs[spec.Name] = spec
}

// Lookup returns the spec for name.
func (as *ActionSet) Lookup(name string) (ActionSpec, bool) {
	spec, ok := as.specs[name]
	return spec, ok
}

// WorldAffecting reports whether name is a declared world-affecting action.
// Unknown names are not world-affecting.
func (as *ActionSet) WorldAffecting(name string) bool {
	spec, ok := as.specs[name]
	return ok && spec.WorldAffecting
}

// Specs returns all specs in registration order.
func (as *ActionSet) Specs() []ActionSpec {
	out := make([]ActionSpec, 0, len(as.order))
	for _, name := range as.order {
		out = append(out, as.specs[name])
	}
	return out
}

var directions = map[string]core.Position{
	"north": {X: 0, Y: -1},
	"south": {X: 0, Y: 1},
	"east":  {X: 1, Y: 0},
	"west":  {X: -1, Y: 0},
}

// DefaultActions returns the built-in action registry: move (cardinal
// directions), pickup and wait.
func DefaultActions() *ActionSet {
	return NewActionSet(
		ActionSpec{
			Name:           "move",
			Description:    "Move the agent one cell in a cardinal direction.",
			WorldAffecting: true,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"direction": map[string]any{
						"type": "string",
						"enum": []any{"north", "south", "east", "west"},
					},
				},
				"required": []any{"direction"},
			},
			Apply: applyMove,
		},
		ActionSpec{
			Name:           "pickup",
			Description:    "Pick up the item on the agent's current cell.",
			WorldAffecting: true,
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Apply: applyPickup,
		},
		ActionSpec{
			Name:           "wait",
			Description:    "Do nothing for one turn.",
			WorldAffecting: true,
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Apply: applyWait,
		},
	)
}

func applyMove(s *core.Snapshot, args map[string]any) (core.Delta, error) {
	raw, _ := args["direction"].(string)
	dir, ok := directions[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return core.Delta{}, &core.ActionError{
			Code:   core.ActionInvalid,
			Reason: fmt.Sprintf("unknown direction %q", raw),
		}
	}
	next := core.Position{X: s.Agent.X + dir.X, Y: s.Agent.Y + dir.Y}
	if !s.InBounds(next) {
		return core.Delta{}, &core.ActionError{
			Code:   core.ActionOutOfBounds,
			Reason: fmt.Sprintf("(%d,%d) is outside the %dx%d grid", next.X, next.Y, s.Width, s.Height),
		}
	}
	if s.Blocked(next) {
		return core.Delta{}, &core.ActionError{
			Code:   core.ActionBlocked,
			Reason: fmt.Sprintf("obstacle at (%d,%d)", next.X, next.Y),
		}
	}
	s.Agent = next
	return core.Delta{AgentPos: &next}, nil
}

func applyPickup(s *core.Snapshot, args map[string]any) (core.Delta, error) {
	if _, ok := s.Items[s.Agent]; !ok {
		return core.Delta{}, &core.ActionError{
			Code:   core.ActionBlocked,
			Reason: fmt.Sprintf("nothing to pick up at (%d,%d)", s.Agent.X, s.Agent.Y),
		}
	}
	delete(s.Items, s.Agent)
	return core.Delta{Cells: []core.CellChange{{Pos: s.Agent}}}, nil
}

// wait always succeeds with an empty delta.
func applyWait(*core.Snapshot, map[string]any) (core.Delta, error) {
	return core.Delta{}, nil
}
