package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/aicraft/core"
	"github.com/hupe1980/aicraft/runtime"
	"github.com/hupe1980/aicraft/store/inmem"
	"github.com/hupe1980/aicraft/world"
)

func newFixture(t *testing.T, rt core.Runtime) *Streamer {
	t.Helper()
	ctx := context.Background()

	store := inmem.New()
	require.NoError(t, store.PutAgent(ctx, core.AgentRecord{
		ID:      "a1",
		Name:    "Scout",
		Persona: "terse explorer",
	}))

	worlds := world.NewStore()
	require.NoError(t, worlds.Load(core.WorldRecord{
		ID:     "w1",
		Width:  5,
		Height: 5,
		Obstacles: []core.Position{
			{X: 3, Y: 2},
		},
		Items: []core.PlacedItem{
			{Pos: core.Position{X: 2, Y: 2}, Kind: "key"},
		},
		Start: core.Position{X: 2, Y: 2},
	}))

	return New(store, worlds, rt, worlds.Actions())
}

func collect(t *testing.T, events <-chan core.StreamEvent) []core.StreamEvent {
	t.Helper()
	var out []core.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("stream did not close; got %d events so far", len(out))
		}
	}
}

func args(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestDeployOrderedHappyPath(t *testing.T) {
	rt := runtime.NewScripted([]core.TurnEvent{
		core.ReasoningTurn{Text: "I should head north."},
		core.TextTurn{Text: "Moving north."},
		core.ToolCallTurn{ID: "c1", Name: "move", Arguments: args(t, map[string]any{"direction": "north"})},
		core.ToolResultTurn{ID: "c1", Name: "move", Output: map[string]any{"action": "move", "status": "requested"}},
		core.TerminalTurn{Reason: core.TerminalCompleted, Message: "reached the wall"},
	})
	s := newFixture(t, rt)

	_, events, err := s.Deploy(context.Background(), Request{AgentID: "a1", WorldID: "w1", Prompt: "go"})
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 6)
	assert.Equal(t, core.ThinkingEvent{Text: "I should head north."}, got[0])
	assert.Equal(t, core.TextEvent{Text: "Moving north."}, got[1])

	call, ok := got[2].(core.ToolCallEvent)
	require.True(t, ok)
	assert.Equal(t, "move", call.Name)

	// The world update must precede the tool result referencing it.
	update, ok := got[3].(core.WorldUpdateEvent)
	require.True(t, ok, "expected world_update before tool_result, got %T", got[3])
	assert.Equal(t, "w1", update.WorldID)
	require.NotNil(t, update.Delta.AgentPos)
	assert.Equal(t, core.Position{X: 2, Y: 1}, *update.Delta.AgentPos)

	result, ok := got[4].(core.ToolResultEvent)
	require.True(t, ok)
	assert.False(t, result.IsError)

	assert.Equal(t, core.CompleteEvent{Summary: "reached the wall"}, got[5])
}

func TestDeployExactlyOneTerminalEvent(t *testing.T) {
	rt := runtime.NewScripted([]core.TurnEvent{
		core.TextTurn{Text: "done"},
		core.TerminalTurn{Reason: core.TerminalCompleted},
	})
	s := newFixture(t, rt)

	_, events, err := s.Deploy(context.Background(), Request{AgentID: "a1", WorldID: "w1"})
	require.NoError(t, err)
	got := collect(t, events)

	terminals := 0
	for _, ev := range got {
		switch ev.(type) {
		case core.CompleteEvent, core.ErrorEvent:
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	assert.Equal(t, core.CompleteEvent{Summary: "deployment completed"}, got[len(got)-1])
}

func TestDeploySynthesizesCompleteOnExhaustedInput(t *testing.T) {
	rt := runtime.NewScripted([]core.TurnEvent{
		core.TextTurn{Text: "trailing off"},
	})
	s := newFixture(t, rt)

	_, events, err := s.Deploy(context.Background(), Request{AgentID: "a1", WorldID: "w1"})
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 2)
	assert.Equal(t, core.CompleteEvent{Summary: "ended without explicit terminal signal"}, got[1])
}

func TestDeployBlockedMoveIsNonFatal(t *testing.T) {
	rt := runtime.NewScripted([]core.TurnEvent{
		core.ToolCallTurn{ID: "c1", Name: "move", Arguments: args(t, map[string]any{"direction": "east"})}, // into the obstacle at (3,2)
		core.ToolResultTurn{ID: "c1", Name: "move"},
		core.TextTurn{Text: "blocked, trying elsewhere"},
		core.TerminalTurn{Reason: core.TerminalCompleted},
	})
	s := newFixture(t, rt)

	_, events, err := s.Deploy(context.Background(), Request{AgentID: "a1", WorldID: "w1"})
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 4)
	for _, ev := range got {
		_, isUpdate := ev.(core.WorldUpdateEvent)
		assert.False(t, isUpdate, "rejected action must not emit a world update")
	}

	result, ok := got[1].(core.ToolResultEvent)
	require.True(t, ok)
	assert.True(t, result.IsError)
	payload, ok := result.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(core.ActionBlocked), payload["code"])

	// The deployment keeps going after the rejection.
	assert.Equal(t, core.TextEvent{Text: "blocked, trying elsewhere"}, got[2])
}

func TestDeployMissingWorldIsSingleFatalError(t *testing.T) {
	rt := runtime.NewScripted([]core.TurnEvent{
		core.TextTurn{Text: "never reached"},
	})
	s := newFixture(t, rt)

	_, events, err := s.Deploy(context.Background(), Request{AgentID: "a1", WorldID: "nowhere"})
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 1)
	fatal, ok := got[0].(core.ErrorEvent)
	require.True(t, ok)
	assert.True(t, fatal.Fatal)
	assert.Contains(t, fatal.Message, "nowhere")
}

func TestDeployMissingAgentIsSingleFatalError(t *testing.T) {
	s := newFixture(t, runtime.NewScripted(nil))

	_, events, err := s.Deploy(context.Background(), Request{AgentID: "ghost", WorldID: "w1"})
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 1)
	fatal, ok := got[0].(core.ErrorEvent)
	require.True(t, ok)
	assert.True(t, fatal.Fatal)
}

func TestDeployEmptyReasoningSuppressed(t *testing.T) {
	rt := runtime.NewScripted([]core.TurnEvent{
		core.ReasoningTurn{Text: ""},
		core.TerminalTurn{Reason: core.TerminalCompleted},
	})
	s := newFixture(t, rt)

	_, events, err := s.Deploy(context.Background(), Request{AgentID: "a1", WorldID: "w1"})
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 1)
	_, ok := got[0].(core.CompleteEvent)
	assert.True(t, ok)
}

func TestDeployRuntimeFailureIsFatal(t *testing.T) {
	rt := runtime.NewScripted([]core.TurnEvent{
		core.TextTurn{Text: "partial"},
	}, func(o *runtime.ScriptedOptions) {
		o.Failure = errors.New("connection reset")
	})
	s := newFixture(t, rt)

	_, events, err := s.Deploy(context.Background(), Request{AgentID: "a1", WorldID: "w1"})
	require.NoError(t, err)
	got := collect(t, events)

	last, ok := got[len(got)-1].(core.ErrorEvent)
	require.True(t, ok)
	assert.True(t, last.Fatal)
	assert.Contains(t, last.Message, "connection reset")
}

func TestDeployPassthroughToolResult(t *testing.T) {
	rt := runtime.NewScripted([]core.TurnEvent{
		core.ToolCallTurn{ID: "c1", Name: "lookup", Arguments: args(t, map[string]any{"query": "weather"})},
		core.ToolResultTurn{ID: "c1", Name: "lookup", Output: "sunny"},
		core.TerminalTurn{Reason: core.TerminalCompleted},
	})
	s := newFixture(t, rt)

	_, events, err := s.Deploy(context.Background(), Request{AgentID: "a1", WorldID: "w1"})
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 3)
	result, ok := got[1].(core.ToolResultEvent)
	require.True(t, ok)
	assert.Equal(t, "sunny", result.Result)
	assert.False(t, result.IsError)
}

func TestCancelClosesStreamSilently(t *testing.T) {
	// A very long script: cancellation must close the stream mid-flight
	// without a terminal event.
	turns := make([]core.TurnEvent, 0, 1000)
	for i := 0; i < 1000; i++ {
		turns = append(turns, core.TextTurn{Text: "tick"})
	}
	s := newFixture(t, runtime.NewScripted(turns))

	id, events, err := s.Deploy(context.Background(), Request{AgentID: "a1", WorldID: "w1"})
	require.NoError(t, err)

	// Read a couple of events, then cancel.
	<-events
	<-events
	require.NoError(t, s.Cancel(id))

	got := collect(t, events)
	for _, ev := range got {
		switch ev.(type) {
		case core.CompleteEvent, core.ErrorEvent:
			t.Fatalf("cancelled stream must close without terminal event, got %T", ev)
		}
	}
}

func TestDeployRuntimeFailedToolCallSkipsApply(t *testing.T) {
	// When the runtime's own handler already failed, the action is not
	// applied and the error result passes through untouched.
	rt := runtime.NewScripted([]core.TurnEvent{
		core.ToolCallTurn{ID: "c1", Name: "move", Arguments: args(t, map[string]any{"direction": "north"})},
		core.ToolResultTurn{ID: "c1", Name: "move", Output: "handler exploded", IsError: true},
		core.TerminalTurn{Reason: core.TerminalCompleted},
	})
	s := newFixture(t, rt)

	_, events, err := s.Deploy(context.Background(), Request{AgentID: "a1", WorldID: "w1"})
	require.NoError(t, err)
	got := collect(t, events)

	require.Len(t, got, 3)
	result, ok := got[1].(core.ToolResultEvent)
	require.True(t, ok)
	assert.True(t, result.IsError)
	assert.Equal(t, "handler exploded", result.Result)

	// And the agent did not move.
	snap, err := s.worlds.Get(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, core.Position{X: 2, Y: 2}, snap.Agent)
}

func TestCancelUnknownDeployment(t *testing.T) {
	s := newFixture(t, runtime.NewScripted(nil))
	assert.Error(t, s.Cancel("nope"))
}
