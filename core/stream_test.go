package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestEncodeEvent_SelfContained(t *testing.T) {
	pos := Position{X: 2, Y: 1}
	events := []StreamEvent{
		ThinkingEvent{Text: "pondering"},
		TextEvent{Text: "hello"},
		ToolCallEvent{ID: "tc-1", Name: "move", Arguments: json.RawMessage(`{"direction":"north"}`)},
		ToolResultEvent{ID: "tc-1", Name: "move", Result: "ok", IsError: false},
		WorldUpdateEvent{WorldID: "w1", Delta: Delta{AgentPos: &pos}},
		CompleteEvent{Summary: "done"},
		ErrorEvent{Message: "boom", Fatal: true},
	}

	for _, ev := range events {
		b, err := EncodeEvent(ev)
		if err != nil {
			t.Fatalf("EncodeEvent(%s): %v", ev.Type(), err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(b, &decoded); err != nil {
			t.Fatalf("event %s is not a standalone JSON document: %v", ev.Type(), err)
		}
	}
}

func TestEncodeEnvelope(t *testing.T) {
	b, err := EncodeEnvelope(TextEvent{Text: "chunk"})
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Type != EventText {
		t.Fatalf("envelope type = %q, want %q", env.Type, EventText)
	}
	var payload TextEvent
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Text != "chunk" {
		t.Fatalf("payload text = %q", payload.Text)
	}
}

func TestEventTypeNames(t *testing.T) {
	want := []struct {
		ev   StreamEvent
		name EventType
	}{
		{ThinkingEvent{}, "thinking"},
		{TextEvent{}, "text"},
		{ToolCallEvent{}, "tool_call"},
		{ToolResultEvent{}, "tool_result"},
		{WorldUpdateEvent{}, "world_update"},
		{CompleteEvent{}, "complete"},
		{ErrorEvent{}, "error"},
	}
	for _, tc := range want {
		if tc.ev.Type() != tc.name {
			t.Errorf("%T.Type() = %q, want %q", tc.ev, tc.ev.Type(), tc.name)
		}
	}
}

func TestAsActionError(t *testing.T) {
	ae := &ActionError{Code: ActionBlocked, Reason: "obstacle at (1,1)"}
	wrapped := fmt.Errorf("apply move: %w", ae)

	got, ok := AsActionError(wrapped)
	if !ok || got.Code != ActionBlocked {
		t.Fatalf("AsActionError(wrapped) = %v, %v", got, ok)
	}
	if _, ok := AsActionError(errors.New("plain")); ok {
		t.Fatal("plain error should not unwrap as ActionError")
	}
}

func TestSnapshotBoundsAndClone(t *testing.T) {
	s := Snapshot{
		ID: "w1", Width: 3, Height: 2,
		Obstacles: map[Position]struct{}{{X: 1, Y: 1}: {}},
		Items:     map[Position]string{{X: 2, Y: 0}: "berry"},
		Agent:     Position{X: 0, Y: 0},
	}

	if !s.InBounds(Position{X: 2, Y: 1}) {
		t.Error("(2,1) should be in bounds of 3x2")
	}
	if s.InBounds(Position{X: 3, Y: 0}) || s.InBounds(Position{X: 0, Y: -1}) {
		t.Error("out-of-range positions reported in bounds")
	}
	if !s.Blocked(Position{X: 1, Y: 1}) {
		t.Error("obstacle cell not reported blocked")
	}

	c := s.Clone()
	c.Obstacles[Position{X: 0, Y: 1}] = struct{}{}
	delete(c.Items, Position{X: 2, Y: 0})
	if s.Blocked(Position{X: 0, Y: 1}) {
		t.Error("clone mutation leaked into original obstacles")
	}
	if _, ok := s.Items[Position{X: 2, Y: 0}]; !ok {
		t.Error("clone mutation leaked into original items")
	}
}

func TestNewID_Uniqueness(t *testing.T) {
	if NewID() == NewID() {
		t.Error("expected unique IDs")
	}
}
