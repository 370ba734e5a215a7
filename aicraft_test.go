package aicraft

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/aicraft/core"
	"github.com/hupe1980/aicraft/runtime"
	"github.com/hupe1980/aicraft/tool"
)

func newCraft(t *testing.T, turns []core.TurnEvent) *AICraft {
	t.Helper()
	craft, err := New(runtime.NewScripted(turns))
	require.NoError(t, err)
	return craft
}

func TestCreateAndDeploy(t *testing.T) {
	ctx := context.Background()
	craft := newCraft(t, []core.TurnEvent{
		core.TextTurn{Text: "hello"},
		core.ToolCallTurn{ID: "c1", Name: "move", Arguments: json.RawMessage(`{"direction":"south"}`)},
		core.ToolResultTurn{ID: "c1", Name: "move"},
		core.TerminalTurn{Reason: core.TerminalCompleted},
	})

	agent, err := craft.CreateAgent(ctx, "Scout", "terse")
	require.NoError(t, err)
	require.NotEmpty(t, agent.ID)

	world, err := craft.CreateWorld(ctx, core.WorldRecord{
		Name:   "meadow",
		Width:  4,
		Height: 4,
		Start:  core.Position{X: 1, Y: 1},
	})
	require.NoError(t, err)

	_, events, err := craft.Deploy(ctx, agent.ID, world.ID, "walk")
	require.NoError(t, err)

	var sawUpdate bool
	for ev := range events {
		if up, ok := ev.(core.WorldUpdateEvent); ok {
			sawUpdate = true
			require.NotNil(t, up.Delta.AgentPos)
			assert.Equal(t, core.Position{X: 1, Y: 2}, *up.Delta.AgentPos)
		}
	}
	assert.True(t, sawUpdate)

	snap, err := craft.WorldState(ctx, world.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Position{X: 1, Y: 2}, snap.Agent)
}

func TestCreateWorldValidates(t *testing.T) {
	craft := newCraft(t, nil)
	_, err := craft.CreateWorld(context.Background(), core.WorldRecord{Width: 0, Height: 3})
	assert.Error(t, err)
}

func TestCreateWorldSurvivesRestore(t *testing.T) {
	ctx := context.Background()
	craft := newCraft(t, nil)

	world, err := craft.CreateWorld(ctx, core.WorldRecord{
		Name: "meadow", Width: 3, Height: 3,
	})
	require.NoError(t, err)

	// A second instance over the same store picks the world up.
	other, err := New(runtime.NewScripted(nil), func(o *Options) {
		o.Store = craft.Store()
	})
	require.NoError(t, err)
	require.NoError(t, other.Restore(ctx))

	_, err = other.WorldState(ctx, world.ID)
	assert.NoError(t, err)
}

func TestToolsIncludeWorldActions(t *testing.T) {
	craft := newCraft(t, nil)

	names := make(map[string]bool)
	for _, def := range craft.Tools().Definitions() {
		names[def.Name] = true
	}
	assert.True(t, names["move"])
	assert.True(t, names["pickup"])
	assert.True(t, names["wait"])
}

func TestCreateToolRegistersHandler(t *testing.T) {
	ctx := context.Background()
	craft := newCraft(t, nil)

	_, err := craft.CreateTool(ctx, core.ToolRecord{
		Name:        "greet",
		Description: "greets by name",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"name": map[string]any{"type": "string"}},
			"required":   []any{"name"},
		},
	}, func(_ context.Context, args map[string]any) (any, error) {
		return "hello " + args["name"].(string), nil
	})
	require.NoError(t, err)

	result, err := craft.Tools().Execute(ctx, "greet", json.RawMessage(`{"name":"ada"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello ada", result)

	_, err = craft.Tools().Execute(ctx, "greet", json.RawMessage(`{}`))
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestExportImportWorld(t *testing.T) {
	ctx := context.Background()
	craft := newCraft(t, []core.TurnEvent{
		core.ToolCallTurn{ID: "c1", Name: "move", Arguments: json.RawMessage(`{"direction":"east"}`)},
		core.ToolResultTurn{ID: "c1", Name: "move"},
		core.TerminalTurn{Reason: core.TerminalCompleted},
	})

	agent, err := craft.CreateAgent(ctx, "Scout", "")
	require.NoError(t, err)
	world, err := craft.CreateWorld(ctx, core.WorldRecord{
		Name: "meadow", Width: 4, Height: 4, Start: core.Position{X: 0, Y: 0},
	})
	require.NoError(t, err)

	_, events, err := craft.Deploy(ctx, agent.ID, world.ID, "walk east")
	require.NoError(t, err)
	for range events {
	}

	path := filepath.Join(t.TempDir(), "w.snap")
	require.NoError(t, craft.ExportWorld(ctx, world.ID, path))

	// Reset live state to the original definition, then import the exported
	// (moved) state back.
	rec, err := craft.GetWorld(ctx, world.ID)
	require.NoError(t, err)
	require.NoError(t, craft.worlds.Load(rec))
	reset, err := craft.WorldState(ctx, world.ID)
	require.NoError(t, err)
	require.Equal(t, core.Position{X: 0, Y: 0}, reset.Agent)

	id, err := craft.ImportWorld(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, world.ID, id)

	snap, err := craft.WorldState(ctx, world.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Position{X: 1, Y: 0}, snap.Agent)
}
