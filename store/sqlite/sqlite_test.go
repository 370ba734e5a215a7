package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/aicraft/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "aicraft.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAgentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := core.AgentRecord{ID: "a1", Name: "Scout", Persona: "terse", AvatarPath: "avatars/a1.png", CreatedAt: created}
	require.NoError(t, s.PutAgent(ctx, rec))

	got, err := s.GetAgent(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.Persona, got.Persona)
	assert.Equal(t, rec.AvatarPath, got.AvatarPath)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestPutAgentUpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.PutAgent(ctx, core.AgentRecord{ID: "a1", Name: "Scout", CreatedAt: created}))
	require.NoError(t, s.PutAgent(ctx, core.AgentRecord{ID: "a1", Name: "Ranger", CreatedAt: time.Now()}))

	got, err := s.GetAgent(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Ranger", got.Name)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestWorldRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec := core.WorldRecord{
		ID:        "w1",
		Name:      "meadow",
		Width:     8,
		Height:    6,
		Obstacles: []core.Position{{X: 1, Y: 1}, {X: 2, Y: 3}},
		Items:     []core.PlacedItem{{Pos: core.Position{X: 4, Y: 4}, Kind: "key"}},
		Start:     core.Position{X: 0, Y: 5},
	}
	require.NoError(t, s.PutWorld(ctx, rec))

	got, err := s.GetWorld(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, rec.Obstacles, got.Obstacles)
	assert.Equal(t, rec.Items, got.Items)
	assert.Equal(t, rec.Start, got.Start)
	assert.Equal(t, 8, got.Width)
	assert.Equal(t, 6, got.Height)
}

func TestToolRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec := core.ToolRecord{
		Name:        "lookup",
		Description: "looks things up",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []any{"query"},
		},
	}
	require.NoError(t, s.PutTool(ctx, rec))

	got, err := s.GetTool(ctx, "lookup")
	require.NoError(t, err)
	assert.Equal(t, rec.Parameters, got.Parameters)
}

func TestNotFoundAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.GetWorld(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteWorld(ctx, "missing"), core.ErrNotFound)

	require.NoError(t, s.PutWorld(ctx, core.WorldRecord{ID: "w1", Width: 3, Height: 3}))
	require.NoError(t, s.DeleteWorld(ctx, "w1"))
	_, err = s.GetWorld(ctx, "w1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListOrderedByID(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutAgent(ctx, core.AgentRecord{ID: "b"}))
	require.NoError(t, s.PutAgent(ctx, core.AgentRecord{ID: "a"}))
	require.NoError(t, s.PutAgent(ctx, core.AgentRecord{ID: "c"}))

	all, err := s.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})
}
