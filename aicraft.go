// Package aicraft provides a high-level façade over the deployment streamer
// and its services (persistence, live world state, tool registry, avatar
// generation). Most applications interact with this package by:
//  1. Creating an AICraft via New() with an agent runtime (optionally
//     overriding the default in-memory store)
//  2. Creating agents, worlds and tools
//  3. Deploying an agent into a world and consuming the ordered event stream
//
// The façade delegates stream semantics to deploy.Streamer while keeping
// setup ergonomics concise. All defaults are safe for local development;
// production deployments typically supply the SQLite store and a structured
// logger.
package aicraft

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/aicraft/avatar"
	"github.com/hupe1980/aicraft/core"
	"github.com/hupe1980/aicraft/deploy"
	"github.com/hupe1980/aicraft/logging"
	"github.com/hupe1980/aicraft/snapshot"
	"github.com/hupe1980/aicraft/store/inmem"
	"github.com/hupe1980/aicraft/tool"
	"github.com/hupe1980/aicraft/world"
)

// Options configures the AICraft instance.
type Options struct {
	// Store persists agents, worlds and tool definitions. Defaults to the
	// in-memory store.
	Store core.Store

	// Actions is the world action registry. Defaults to world.DefaultActions.
	Actions *world.ActionSet

	// Tools are registered alongside the built-in world action tools.
	Tools []tool.Tool

	// Avatar generates agent portraits on CreateAgent. Nil disables avatars.
	Avatar *avatar.Generator

	// EventBufferSize sets channel buffering for deployment streams.
	EventBufferSize int

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// AICraft is the high-level façade aggregating the streamer and its services.
type AICraft struct {
	store    core.Store
	worlds   *world.Store
	streamer *deploy.Streamer
	registry *tool.Registry
	avatar   *avatar.Generator
	logger   logging.Logger
}

// New creates an AICraft instance around the given agent runtime.
func New(rt core.Runtime, optFns ...func(o *Options)) (*AICraft, error) {
	opts := Options{
		Store:   inmem.New(),
		Actions: world.DefaultActions(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	worlds := world.NewStore(func(o *world.Options) {
		o.Actions = opts.Actions
		o.Logger = opts.Logger
	})

	actionTools, err := world.Toolset(opts.Actions)
	if err != nil {
		return nil, err
	}
	registry, err := tool.NewRegistry(actionTools...)
	if err != nil {
		return nil, err
	}
	for _, t := range opts.Tools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}

	streamer := deploy.New(opts.Store, worlds, rt, opts.Actions, func(o *deploy.Options) {
		if opts.EventBufferSize > 0 {
			o.EventBufferSize = opts.EventBufferSize
		}
		o.Logger = opts.Logger
	})

	return &AICraft{
		store:    opts.Store,
		worlds:   worlds,
		streamer: streamer,
		registry: registry,
		avatar:   opts.Avatar,
		logger:   opts.Logger,
	}, nil
}

// Restore loads all persisted world definitions into live state. Call once
// at startup when using a durable store.
func (a *AICraft) Restore(ctx context.Context) error {
	records, err := a.store.ListWorlds(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := a.worlds.Load(rec); err != nil {
			return fmt.Errorf("restore world %q: %w", rec.ID, err)
		}
	}
	return nil
}

// Store exposes the persistence layer.
func (a *AICraft) Store() core.Store { return a.store }

// Tools exposes the tool registry handed to deployments.
func (a *AICraft) Tools() *tool.Registry { return a.registry }

// CreateAgent persists a new agent identity. Avatar generation is best
// effort; a failing generator logs a warning and the agent is created
// without one.
func (a *AICraft) CreateAgent(ctx context.Context, name, persona string) (core.AgentRecord, error) {
	if name == "" {
		return core.AgentRecord{}, fmt.Errorf("agent name is required")
	}
	rec := core.AgentRecord{
		ID:        core.NewID(),
		Name:      name,
		Persona:   persona,
		CreatedAt: time.Now().UTC(),
	}
	if a.avatar != nil && a.avatar.Enabled() {
		if path, ok, err := a.avatar.Generate(ctx, rec.ID, persona); ok {
			rec.AvatarPath = path
		} else if err != nil {
			a.logger.Warn("agent.avatar.skipped", "agent_id", rec.ID, "error", err.Error())
		}
	}
	if err := a.store.PutAgent(ctx, rec); err != nil {
		return core.AgentRecord{}, err
	}
	return rec, nil
}

// GetAgent returns a persisted agent.
func (a *AICraft) GetAgent(ctx context.Context, id string) (core.AgentRecord, error) {
	return a.store.GetAgent(ctx, id)
}

// ListAgents returns all persisted agents.
func (a *AICraft) ListAgents(ctx context.Context) ([]core.AgentRecord, error) {
	return a.store.ListAgents(ctx)
}

// DeleteAgent removes a persisted agent.
func (a *AICraft) DeleteAgent(ctx context.Context, id string) error {
	return a.store.DeleteAgent(ctx, id)
}

// CreateWorld validates, persists and activates a world definition. The id
// is assigned here.
func (a *AICraft) CreateWorld(ctx context.Context, rec core.WorldRecord) (core.WorldRecord, error) {
	rec.ID = core.NewID()
	rec.CreatedAt = time.Now().UTC()
	if err := a.worlds.Load(rec); err != nil {
		return core.WorldRecord{}, err
	}
	if err := a.store.PutWorld(ctx, rec); err != nil {
		a.worlds.Remove(rec.ID)
		return core.WorldRecord{}, err
	}
	return rec, nil
}

// GetWorld returns a persisted world definition.
func (a *AICraft) GetWorld(ctx context.Context, id string) (core.WorldRecord, error) {
	return a.store.GetWorld(ctx, id)
}

// ListWorlds returns all persisted world definitions.
func (a *AICraft) ListWorlds(ctx context.Context) ([]core.WorldRecord, error) {
	return a.store.ListWorlds(ctx)
}

// DeleteWorld removes a world definition and its live state.
func (a *AICraft) DeleteWorld(ctx context.Context, id string) error {
	if err := a.store.DeleteWorld(ctx, id); err != nil {
		return err
	}
	a.worlds.Remove(id)
	return nil
}

// WorldState returns a copy of a world's live snapshot.
func (a *AICraft) WorldState(ctx context.Context, id string) (core.Snapshot, error) {
	return a.worlds.Get(ctx, id)
}

// ExportWorld writes a world's live state to a compressed snapshot file.
func (a *AICraft) ExportWorld(ctx context.Context, id, path string) error {
	snap, err := a.worlds.Get(ctx, id)
	if err != nil {
		return err
	}
	return snapshot.Write(path, snap)
}

// ImportWorld loads live state from a snapshot file, replacing the world's
// current state. The world definition must already exist.
func (a *AICraft) ImportWorld(ctx context.Context, path string) (string, error) {
	snap, err := snapshot.Read(path)
	if err != nil {
		return "", err
	}
	if _, err := a.store.GetWorld(ctx, snap.ID); err != nil {
		return "", err
	}
	a.worlds.Install(snap)
	return snap.ID, nil
}

// CreateTool persists a user-authored tool definition and, when a handler is
// given, registers it for execution.
func (a *AICraft) CreateTool(ctx context.Context, rec core.ToolRecord, handler tool.HandlerFunc) (core.ToolRecord, error) {
	rec.CreatedAt = time.Now().UTC()
	if handler != nil {
		ft, err := tool.NewFunctionTool(rec.Name, rec.Description, rec.Parameters, handler)
		if err != nil {
			return core.ToolRecord{}, err
		}
		if err := a.registry.Register(ft); err != nil {
			return core.ToolRecord{}, err
		}
	}
	if err := a.store.PutTool(ctx, rec); err != nil {
		return core.ToolRecord{}, err
	}
	return rec, nil
}

// GetTool returns a persisted tool definition.
func (a *AICraft) GetTool(ctx context.Context, name string) (core.ToolRecord, error) {
	return a.store.GetTool(ctx, name)
}

// ListTools returns all persisted tool definitions.
func (a *AICraft) ListTools(ctx context.Context) ([]core.ToolRecord, error) {
	return a.store.ListTools(ctx)
}

// DeleteTool removes a persisted tool definition.
func (a *AICraft) DeleteTool(ctx context.Context, name string) error {
	return a.store.DeleteTool(ctx, name)
}

// Deploy starts a deployment of an agent into a world, returning the
// deployment id and the ordered event stream.
func (a *AICraft) Deploy(ctx context.Context, agentID, worldID, prompt string) (string, <-chan core.StreamEvent, error) {
	return a.streamer.Deploy(ctx, deploy.Request{
		AgentID: agentID,
		WorldID: worldID,
		Prompt:  prompt,
		Toolbox: a.registry,
	})
}

// CancelDeployment requests cooperative termination of an in-flight
// deployment.
func (a *AICraft) CancelDeployment(id string) error {
	return a.streamer.Cancel(id)
}
