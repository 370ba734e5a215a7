package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// HandlerFunc is the implementation signature wrapped by FunctionTool.
type HandlerFunc func(ctx context.Context, args map[string]any) (any, error)

// FunctionTool adapts a plain Go function into a Tool. Arguments are
// validated against the declared JSON schema before the function runs, so
// handlers can rely on shape and enum constraints. Error codes are
// normalized: VALIDATION_ERROR for schema mismatches, EXECUTION_ERROR for
// handler failures, custom codes preserved when the handler returns a
// *ToolError directly.
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	schema      *jsonschema.Schema
	fn          HandlerFunc
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and
// function. The schema is compiled eagerly; an invalid schema is a
// configuration error surfaced here, not at call time.
func NewFunctionTool(name, description string, parameters map[string]any, fn HandlerFunc) (*FunctionTool, error) {
	var schema *jsonschema.Schema
	if len(parameters) > 0 {
		raw, err := json.Marshal(parameters)
		if err != nil {
			return nil, fmt.Errorf("tool %s: marshal parameter schema: %w", name, err)
		}
		compiler := jsonschema.NewCompiler()
		resource := name + ".schema.json"
		if err := compiler.AddResource(resource, strings.NewReader(string(raw))); err != nil {
			return nil, fmt.Errorf("tool %s: add parameter schema: %w", name, err)
		}
		schema, err = compiler.Compile(resource)
		if err != nil {
			return nil, fmt.Errorf("tool %s: compile parameter schema: %w", name, err)
		}
	}
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		schema:      schema,
		fn:          fn,
	}, nil
}

// NewFunctionToolFromStruct derives the parameter schema from a struct's
// fields and json tags. It is a convenience for simple argument containers.
func NewFunctionToolFromStruct(name, description string, argsType any, fn HandlerFunc) (*FunctionTool, error) {
	reflector := invopop.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	reflected := reflector.Reflect(argsType)
	raw, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("tool %s: reflect parameter schema: %w", name, err)
	}
	var parameters map[string]any
	if err := json.Unmarshal(raw, &parameters); err != nil {
		return nil, fmt.Errorf("tool %s: decode reflected schema: %w", name, err)
	}
	// Keep only the schema subset model providers accept.
	delete(parameters, "$schema")
	delete(parameters, "$id")
	return NewFunctionTool(name, description, parameters, fn)
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the declared schema then invokes the wrapped
// function.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	if t.schema != nil {
		if err := t.schema.Validate(normalizeForValidation(args)); err != nil {
			return nil, &ToolError{
				Tool:    t.name,
				Message: fmt.Sprintf("parameter validation failed: %v", err),
				Code:    "VALIDATION_ERROR",
			}
		}
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}
	return result, nil
}

// normalizeForValidation round-trips args through JSON so the validator sees
// the same value shapes a decoded request would produce (e.g. ints become
// float64).
func normalizeForValidation(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return args
	}
	return v
}
