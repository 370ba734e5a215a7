package world

import (
	"context"

	"github.com/hupe1980/aicraft/tool"
)

// Toolset exposes each declared action as a callable tool for an agent
// runtime. The handlers validate and acknowledge the request only; the
// deployment streamer is the sole world mutator, applying the action when it
// observes the tool result. This keeps all state changes on one writer path
// per world regardless of which runtime executes the tools.
func Toolset(actions *ActionSet) ([]tool.Tool, error) {
	specs := actions.Specs()
	tools := make([]tool.Tool, 0, len(specs))
	for _, spec := range specs {
		name := spec.Name
		t, err := tool.NewFunctionTool(spec.Name, spec.Description, spec.Parameters,
			func(ctx context.Context, args map[string]any) (any, error) {
				return map[string]any{"action": name, "status": "requested"}, nil
			})
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}
