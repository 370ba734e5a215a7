// Package anthropic adapts the Anthropic Claude Messages API to core.Runtime.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/aicraft/core"
)

// Options configures the Anthropic runtime adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	// MaxTurns bounds the model-call/tool-execution loop per deployment.
	MaxTurns int
}

// Runtime drives the agentic loop against the Anthropic Messages API: call
// the model, surface its blocks as turn events, execute requested tools via
// the task's toolbox, feed results back, repeat until the model stops asking
// for tools. Implements core.Runtime.
type Runtime struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic runtime using the official client.
func New(optFns ...func(o *Options)) *Runtime {
	opts := defaultOptions(optFns...)
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Runtime{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic runtime from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Runtime {
	return &Runtime{client: client, opts: defaultOptions(optFns...)}
}

func defaultOptions(optFns ...func(o *Options)) Options {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
		MaxTurns:    20,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

type pendingCall struct {
	id   string
	name string
	args json.RawMessage
}

// Execute implements core.Runtime.
func (r *Runtime) Execute(ctx context.Context, task core.Task) (<-chan core.TurnEvent, <-chan error, error) {
	turns := make(chan core.TurnEvent, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(turns)
		defer close(errs)
		r.loop(ctx, task, turns, errs)
	}()

	return turns, errs, nil
}

func (r *Runtime) loop(ctx context.Context, task core.Task, turns chan<- core.TurnEvent, errs chan<- error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(task.Prompt)),
	}

	for turn := 0; ; turn++ {
		if turn >= r.opts.MaxTurns {
			emit(ctx, turns, core.TerminalTurn{
				Reason:  core.TerminalFailed,
				Message: fmt.Sprintf("turn limit (%d) reached", r.opts.MaxTurns),
			})
			return
		}

		params := anthropic.MessageNewParams{
			Model:       r.opts.Model,
			Messages:    messages,
			MaxTokens:   r.opts.MaxTokens,
			Temperature: anthropic.Float(r.opts.Temperature),
		}
		if task.Persona != "" {
			params.System = []anthropic.TextBlockParam{{Text: task.Persona}}
		}
		if task.Toolbox != nil {
			if defs := task.Toolbox.Definitions(); len(defs) > 0 {
				params.Tools = buildTools(defs)
			}
		}

		resp, err := r.client.Messages.New(ctx, params)
		if err != nil {
			errs <- fmt.Errorf("anthropic api error: %w", err)
			return
		}

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var calls []pendingCall

		for _, block := range resp.Content {
			switch block.Type {
			case "thinking":
				thinking := block.AsThinking()
				if !emit(ctx, turns, core.ReasoningTurn{Text: thinking.Thinking}) {
					return
				}
			case "text":
				textBlock := block.AsText()
				if textBlock.Text != "" {
					if !emit(ctx, turns, core.TextTurn{Text: textBlock.Text}) {
						return
					}
					assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(textBlock.Text))
				}
			case "tool_use":
				toolBlock := block.AsToolUse()
				var args json.RawMessage
				if toolBlock.Input != nil {
					if raw, err := json.Marshal(toolBlock.Input); err == nil {
						args = raw
					}
				}
				if !emit(ctx, turns, core.ToolCallTurn{ID: toolBlock.ID, Name: toolBlock.Name, Arguments: args}) {
					return
				}
				var input any
				if len(args) > 0 {
					_ = json.Unmarshal(args, &input)
				}
				assistantBlocks = append(assistantBlocks, anthropic.NewToolUseBlock(toolBlock.ID, input, toolBlock.Name))
				calls = append(calls, pendingCall{id: toolBlock.ID, name: toolBlock.Name, args: args})
			}
		}

		if len(calls) == 0 || resp.StopReason != "tool_use" {
			emit(ctx, turns, core.TerminalTurn{Reason: core.TerminalCompleted})
			return
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))

		resultBlocks := make([]anthropic.ContentBlockParamUnion, 0, len(calls))
		for _, call := range calls {
			output, err := task.Toolbox.Execute(ctx, call.name, call.args)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !emit(ctx, turns, core.ToolResultTurn{ID: call.id, Name: call.name, Output: err.Error(), IsError: true}) {
					return
				}
				resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(call.id, err.Error(), true))
				continue
			}
			if !emit(ctx, turns, core.ToolResultTurn{ID: call.id, Name: call.name, Output: output}) {
				return
			}
			resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(call.id, stringify(output), false))
		}
		messages = append(messages, anthropic.NewUserMessage(resultBlocks...))
	}
}

func emit(ctx context.Context, turns chan<- core.TurnEvent, ev core.TurnEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case turns <- ev:
		return true
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

func buildTools(defs []core.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if def.Parameters != nil {
			if properties, ok := def.Parameters["properties"]; ok {
				inputSchema.Properties = properties
			}
			if required, ok := def.Parameters["required"]; ok {
				inputSchema.Required = toStringSlice(required)
			}
		}
		tools[i] = anthropic.ToolUnionParamOfTool(inputSchema, def.Name)
	}
	return tools
}

func toStringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

var _ core.Runtime = (*Runtime)(nil)
