// Package inmem provides a volatile core.Store backed by process-local maps.
// Suited for tests and ephemeral demo servers; values are copied on the way
// in and out so callers cannot mutate stored state.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/aicraft/core"
)

// Store is an in-memory core.Store. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	agents map[string]core.AgentRecord
	worlds map[string]core.WorldRecord
	tools  map[string]core.ToolRecord
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		agents: make(map[string]core.AgentRecord),
		worlds: make(map[string]core.WorldRecord),
		tools:  make(map[string]core.ToolRecord),
	}
}

// PutAgent stores an agent record.
func (s *Store) PutAgent(_ context.Context, a core.AgentRecord) error {
	if a.ID == "" {
		return fmt.Errorf("agent id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = a
	return nil
}

// GetAgent returns an agent record or ErrNotFound.
func (s *Store) GetAgent(_ context.Context, id string) (core.AgentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return core.AgentRecord{}, fmt.Errorf("agent %q: %w", id, core.ErrNotFound)
	}
	return a, nil
}

// ListAgents returns all agents ordered by id.
func (s *Store) ListAgents(_ context.Context) ([]core.AgentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.AgentRecord, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteAgent removes an agent record; missing ids are ErrNotFound.
func (s *Store) DeleteAgent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return fmt.Errorf("agent %q: %w", id, core.ErrNotFound)
	}
	delete(s.agents, id)
	return nil
}

// PutWorld stores a world definition.
func (s *Store) PutWorld(_ context.Context, w core.WorldRecord) error {
	if w.ID == "" {
		return fmt.Errorf("world id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worlds[w.ID] = cloneWorld(w)
	return nil
}

// GetWorld returns a world definition or ErrNotFound.
func (s *Store) GetWorld(_ context.Context, id string) (core.WorldRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.worlds[id]
	if !ok {
		return core.WorldRecord{}, fmt.Errorf("world %q: %w", id, core.ErrNotFound)
	}
	return cloneWorld(w), nil
}

// ListWorlds returns all world definitions ordered by id.
func (s *Store) ListWorlds(_ context.Context) ([]core.WorldRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.WorldRecord, 0, len(s.worlds))
	for _, w := range s.worlds {
		out = append(out, cloneWorld(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteWorld removes a world definition; missing ids are ErrNotFound.
func (s *Store) DeleteWorld(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.worlds[id]; !ok {
		return fmt.Errorf("world %q: %w", id, core.ErrNotFound)
	}
	delete(s.worlds, id)
	return nil
}

// PutTool stores a tool definition.
func (s *Store) PutTool(_ context.Context, t core.ToolRecord) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[t.Name] = cloneTool(t)
	return nil
}

// GetTool returns a tool definition or ErrNotFound.
func (s *Store) GetTool(_ context.Context, name string) (core.ToolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	if !ok {
		return core.ToolRecord{}, fmt.Errorf("tool %q: %w", name, core.ErrNotFound)
	}
	return cloneTool(t), nil
}

// ListTools returns all tool definitions ordered by name.
func (s *Store) ListTools(_ context.Context) ([]core.ToolRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.ToolRecord, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, cloneTool(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteTool removes a tool definition; missing names are ErrNotFound.
func (s *Store) DeleteTool(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tools[name]; !ok {
		return fmt.Errorf("tool %q: %w", name, core.ErrNotFound)
	}
	delete(s.tools, name)
	return nil
}

func cloneWorld(w core.WorldRecord) core.WorldRecord {
	c := w
	c.Obstacles = append([]core.Position(nil), w.Obstacles...)
	c.Items = append([]core.PlacedItem(nil), w.Items...)
	return c
}

func cloneTool(t core.ToolRecord) core.ToolRecord {
	c := t
	if t.Parameters != nil {
		c.Parameters = make(map[string]any, len(t.Parameters))
		for k, v := range t.Parameters {
			c.Parameters[k] = v
		}
	}
	return c
}

var _ core.Store = (*Store)(nil)
