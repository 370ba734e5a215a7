// Package openai adapts the OpenAI Chat Completions API (with function/tool
// calling) to core.Runtime.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/aicraft/core"
)

// Options configure the OpenAI runtime adapter. Fields mirror a minimal
// subset of Chat Completion parameters; extend via functional options.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	// MaxTurns bounds the model-call/tool-execution loop per deployment.
	MaxTurns int
}

// Runtime drives the agentic loop against the OpenAI Chat Completions API.
// Implements core.Runtime.
type Runtime struct {
	client *openai.Client
	opts   Options
}

// New creates an OpenAI runtime using the official client.
func New(optFns ...func(o *Options)) *Runtime {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI runtime from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
		MaxTurns:            20,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runtime{client: client, opts: opts}
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
	var messages []openai.ChatCompletionMessageParamUnion
	if task.Persona != "" {
		messages = append(messages, openai.SystemMessage(task.Persona))
	}
	messages = append(messages, openai.UserMessage(task.Prompt))

	for turn := 0; ; turn++ {
		if turn >= r.opts.MaxTurns {
			emit(ctx, turns, core.TerminalTurn{
				Reason:  core.TerminalFailed,
				Message: fmt.Sprintf("turn limit (%d) reached", r.opts.MaxTurns),
			})
			return
		}

		params := openai.ChatCompletionNewParams{
			Messages:            messages,
			Model:               r.opts.Model,
			Temperature:         openai.Float(r.opts.Temperature),
			MaxCompletionTokens: openai.Int(r.opts.MaxCompletionTokens),
		}
		if task.Toolbox != nil {
			if defs := task.Toolbox.Definitions(); len(defs) > 0 {
				params.Tools = buildTools(defs)
			}
		}

		resp, err := r.client.Chat.Completions.New(ctx, params)
		if err != nil {
			errs <- fmt.Errorf("openai api error: %w", err)
			return
		}
		if len(resp.Choices) == 0 {
			errs <- fmt.Errorf("openai api error: empty choices")
			return
		}
		choice := resp.Choices[0]

		if choice.Message.Content != "" {
			if !emit(ctx, turns, core.TextTurn{Text: choice.Message.Content}) {
				return
			}
		}

		if len(choice.Message.ToolCalls) == 0 {
			emit(ctx, turns, core.TerminalTurn{Reason: core.TerminalCompleted})
			return
		}

		messages = append(messages, choice.Message.ToParam())

		for _, call := range choice.Message.ToolCalls {
			args := json.RawMessage(call.Function.Arguments)
			if !emit(ctx, turns, core.ToolCallTurn{ID: call.ID, Name: call.Function.Name, Arguments: args}) {
				return
			}

			output, err := task.Toolbox.Execute(ctx, call.Function.Name, args)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !emit(ctx, turns, core.ToolResultTurn{ID: call.ID, Name: call.Function.Name, Output: err.Error(), IsError: true}) {
					return
				}
				messages = append(messages, openai.ToolMessage(err.Error(), call.ID))
				continue
			}
			if !emit(ctx, turns, core.ToolResultTurn{ID: call.ID, Name: call.Function.Name, Output: output}) {
				return
			}
			messages = append(messages, openai.ToolMessage(stringify(output), call.ID))
		}
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

func buildTools(defs []core.ToolDefinition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, len(defs))
	for i, def := range defs {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  def.Parameters,
			},
		}
	}
	return tools
}

var _ core.Runtime = (*Runtime)(nil)
