package runtime

import (
	"context"

	"github.com/hupe1980/aicraft/core"
)

// Scripted is a deterministic core.Runtime that replays a fixed sequence of
// turn events, optionally followed by a transport failure. Useful for tests
// and offline demos.
type Scripted struct {
	turns   []core.TurnEvent
	failure error
}

// ScriptedOptions configures a Scripted runtime.
type ScriptedOptions struct {
	// Failure, when set, is delivered on the error channel after the scripted
	// turns, simulating a mid-stream transport failure.
	Failure error
}

// NewScripted builds a runtime replaying the given turns in order.
func NewScripted(turns []core.TurnEvent, optFns ...func(o *ScriptedOptions)) *Scripted {
	opts := ScriptedOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	cloned := make([]core.TurnEvent, len(turns))
	copy(cloned, turns)
	return &Scripted{turns: cloned, failure: opts.Failure}
}

// Execute implements core.Runtime.
func (s *Scripted) Execute(ctx context.Context, _ core.Task) (<-chan core.TurnEvent, <-chan error, error) {
	turns := make(chan core.TurnEvent)
	errs := make(chan error, 1)

	go func() {
		defer close(turns)
		defer close(errs)
		for _, turn := range s.turns {
			select {
			case <-ctx.Done():
				return
			case turns <- turn:
			}
			if _, ok := turn.(core.TerminalTurn); ok {
				return
			}
		}
		if s.failure != nil {
			errs <- s.failure
		}
	}()

	return turns, errs, nil
}

var _ core.Runtime = (*Scripted)(nil)
