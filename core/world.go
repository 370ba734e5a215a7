package core

// Position is a cell coordinate on a world grid. The origin is the top-left
// corner; x grows east, y grows south.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CellChange records the new content of a single grid cell. An empty Item
// means the cell no longer holds anything.
type CellChange struct {
	Pos  Position `json:"pos"`
	Item string   `json:"item,omitempty"`
}

// Delta is the minimal change set produced by applying an action to a world:
// the agent's new position (if it moved) and any changed cells.
type Delta struct {
	AgentPos *Position    `json:"agent_pos,omitempty"`
	Cells    []CellChange `json:"cells,omitempty"`
}

// Empty reports whether the delta changes nothing.
func (d Delta) Empty() bool { return d.AgentPos == nil && len(d.Cells) == 0 }

// Snapshot is the live state of one grid world. Width and height are fixed
// for the world's lifetime. The agent position always lies within bounds and
// never on an obstacle; the action-application step enforces this, nothing
// else mutates a snapshot.
type Snapshot struct {
	ID        string                `json:"id"`
	Width     int                   `json:"width"`
	Height    int                   `json:"height"`
	Obstacles map[Position]struct{} `json:"-"`
	Items     map[Position]string   `json:"-"`
	Agent     Position              `json:"agent"`
}

// InBounds reports whether p lies within [0,width) x [0,height).
func (s *Snapshot) InBounds(p Position) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// Blocked reports whether p holds an obstacle.
func (s *Snapshot) Blocked(p Position) bool {
	_, ok := s.Obstacles[p]
	return ok
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the store's mutable state.
func (s *Snapshot) Clone() Snapshot {
	c := *s
	c.Obstacles = make(map[Position]struct{}, len(s.Obstacles))
	for p := range s.Obstacles {
		c.Obstacles[p] = struct{}{}
	}
	c.Items = make(map[Position]string, len(s.Items))
	for p, it := range s.Items {
		c.Items[p] = it
	}
	return c
}
