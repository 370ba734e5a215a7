package world

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/aicraft/core"
	"github.com/hupe1980/aicraft/logging"
)

// Options holds overrides passed to NewStore.
type Options struct {
	// Actions is the action registry consulted by Apply.
	Actions *ActionSet
	// Logger receives apply diagnostics.
	Logger logging.Logger
}

// Store holds live snapshots for any number of worlds. Apply is serialized
// per world id (single-writer lock per world); distinct worlds apply in
// parallel. Implements core.WorldStore.
type Store struct {
	mu      sync.RWMutex
	worlds  map[string]*worldState
	actions *ActionSet
	logger  logging.Logger
}

type worldState struct {
	mu   sync.Mutex
	snap core.Snapshot
}

// NewStore constructs an empty store with optional overrides.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := Options{
		Actions: DefaultActions(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		worlds:  make(map[string]*worldState),
		actions: opts.Actions,
		logger:  opts.Logger,
	}
}

// Actions returns the registry this store applies.
func (s *Store) Actions() *ActionSet { return s.actions }

// Load validates a world definition and installs (or replaces) its live
// snapshot.
func (s *Store) Load(rec core.WorldRecord) error {
	snap, err := SnapshotFromRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worlds[rec.ID] = &worldState{snap: snap}
	return nil
}

// Install replaces a world's live state with the given snapshot, keyed by
// its id. Unlike Load it accepts already-live state, e.g. restored from a
// snapshot file.
func (s *Store) Install(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worlds[snap.ID] = &worldState{snap: snap.Clone()}
}

// Remove discards the live snapshot of a world.
func (s *Store) Remove(worldID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.worlds, worldID)
}

// Get returns a copy of the current snapshot.
func (s *Store) Get(ctx context.Context, worldID string) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	s.mu.RLock()
	ws, ok := s.worlds[worldID]
	s.mu.RUnlock()
	if !ok {
		return core.Snapshot{}, fmt.Errorf("world %q: %w", worldID, core.ErrNotFound)
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.snap.Clone(), nil
}

// Apply executes a named action under the world's write lock and returns the
// resulting delta. Unknown actions and failed applications return
// *core.ActionError; the snapshot is unchanged on failure.
func (s *Store) Apply(ctx context.Context, worldID, action string, args map[string]any) (core.Delta, error) {
	if err := ctx.Err(); err != nil {
		return core.Delta{}, err
	}
	s.mu.RLock()
	ws, ok := s.worlds[worldID]
	s.mu.RUnlock()
	if !ok {
		return core.Delta{}, fmt.Errorf("world %q: %w", worldID, core.ErrNotFound)
	}

	spec, ok := s.actions.Lookup(action)
	if !ok || spec.Apply == nil {
		return core.Delta{}, &core.ActionError{
			Code:   core.ActionInvalid,
			Reason: fmt.Sprintf("unknown action %q", action),
		}
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	delta, err := spec.Apply(&ws.snap, args)
	if err != nil {
		s.logger.Debug("world.apply.rejected", "world_id", worldID, "action", action, "error", err.Error())
		return core.Delta{}, err
	}
	s.logger.Debug("world.apply.ok", "world_id", worldID, "action", action)
	return delta, nil
}

// SnapshotFromRecord builds and validates a live snapshot from a persisted
// world definition.
func SnapshotFromRecord(rec core.WorldRecord) (core.Snapshot, error) {
	if rec.Width <= 0 || rec.Height <= 0 {
		return core.Snapshot{}, fmt.Errorf("world %q: dimensions must be positive, got %dx%d", rec.ID, rec.Width, rec.Height)
	}
	snap := core.Snapshot{
		ID:        rec.ID,
		Width:     rec.Width,
		Height:    rec.Height,
		Obstacles: make(map[core.Position]struct{}, len(rec.Obstacles)),
		Items:     make(map[core.Position]string, len(rec.Items)),
		Agent:     rec.Start,
	}
	for _, p := range rec.Obstacles {
		if !snap.InBounds(p) {
			return core.Snapshot{}, fmt.Errorf("world %q: obstacle (%d,%d) out of bounds", rec.ID, p.X, p.Y)
		}
		snap.Obstacles[p] = struct{}{}
	}
	for _, it := range rec.Items {
		if !snap.InBounds(it.Pos) {
			return core.Snapshot{}, fmt.Errorf("world %q: item %q at (%d,%d) out of bounds", rec.ID, it.Kind, it.Pos.X, it.Pos.Y)
		}
		snap.Items[it.Pos] = it.Kind
	}
	if !snap.InBounds(snap.Agent) {
		return core.Snapshot{}, fmt.Errorf("world %q: start (%d,%d) out of bounds", rec.ID, snap.Agent.X, snap.Agent.Y)
	}
	if snap.Blocked(snap.Agent) {
		return core.Snapshot{}, fmt.Errorf("world %q: start (%d,%d) is an obstacle", rec.ID, snap.Agent.X, snap.Agent.Y)
	}
	return snap, nil
}
