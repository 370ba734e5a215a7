package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/aicraft/core"
	"github.com/hupe1980/aicraft/logging"
)

// ActionClassifier reports whether a tool name is a declared world-affecting
// action. The classification is an explicit part of the action registry;
// the streamer never infers it from naming conventions.
type ActionClassifier interface {
	WorldAffecting(name string) bool
}

// Request describes one deployment: an agent, a world, a prompt and the
// toolbox handed to the runtime.
type Request struct {
	AgentID string
	WorldID string
	Prompt  string
	Toolbox core.Toolbox
}

// Options holds configuration overrides passed to New.
type Options struct {
	// EventBufferSize sets channel buffering for outgoing stream events.
	// Sends block once the buffer fills, so a slow client applies
	// backpressure to turn consumption instead of growing memory.
	EventBufferSize int
	// Logger receives per-deployment diagnostics.
	Logger logging.Logger
}

// Streamer coordinates deployments: it checks entity existence, consumes the
// runtime's turn events and emits the ordered stream event sequence.
// Public methods are safe for concurrent use; sessions for different worlds
// run fully in parallel, the world store serializes same-world applications.
type Streamer struct {
	store   core.Store
	worlds  core.WorldStore
	runtime core.Runtime
	actions ActionClassifier

	eventBufferSize int
	logger          logging.Logger

	active map[string]context.CancelFunc
	mu     sync.Mutex
}

// New constructs a Streamer with optional overrides.
func New(store core.Store, worlds core.WorldStore, rt core.Runtime, actions ActionClassifier, optFns ...func(o *Options)) *Streamer {
	opts := Options{
		EventBufferSize: 8,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Streamer{
		store:           store,
		worlds:          worlds,
		runtime:         rt,
		actions:         actions,
		eventBufferSize: opts.EventBufferSize,
		logger:          opts.Logger,
		active:          make(map[string]context.CancelFunc),
	}
}

// Deploy starts one deployment and returns its id plus the ordered event
// stream. The channel is closed after the terminal-class event (Complete or
// fatal Error), or silently on cancellation. Missing agent or world ids
// produce a single fatal Error event, never a partial stream.
func (s *Streamer) Deploy(ctx context.Context, req Request) (string, <-chan core.StreamEvent, error) {
	if req.AgentID == "" || req.WorldID == "" {
		return "", nil, errors.New("deploy: agent id and world id are required")
	}

	deploymentID := core.NewID()
	out := make(chan core.StreamEvent, s.eventBufferSize)

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.active[deploymentID] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			close(out)
			s.mu.Lock()
			delete(s.active, deploymentID)
			s.mu.Unlock()
			cancel()
		}()
		s.run(ctx, deploymentID, req, out)
	}()

	return deploymentID, out, nil
}

// Cancel requests cooperative termination of an in-flight deployment.
func (s *Streamer) Cancel(deploymentID string) error {
	s.mu.Lock()
	cancel, ok := s.active[deploymentID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("deployment %s not found", deploymentID)
	}
	cancel()
	return nil
}

func (s *Streamer) run(ctx context.Context, deploymentID string, req Request, out chan<- core.StreamEvent) {
	logger := s.logger

	agent, err := s.store.GetAgent(ctx, req.AgentID)
	if err != nil {
		s.send(ctx, out, core.ErrorEvent{Message: existenceFailure("agent", req.AgentID, err), Fatal: true})
		return
	}
	if _, err := s.worlds.Get(ctx, req.WorldID); err != nil {
		s.send(ctx, out, core.ErrorEvent{Message: existenceFailure("world", req.WorldID, err), Fatal: true})
		return
	}

	task := core.Task{
		DeploymentID: deploymentID,
		AgentName:    agent.Name,
		Persona:      agent.Persona,
		Prompt:       req.Prompt,
		Toolbox:      req.Toolbox,
	}

	turns, runtimeErrs, err := s.runtime.Execute(ctx, task)
	if err != nil {
		s.send(ctx, out, core.ErrorEvent{Message: fmt.Sprintf("agent runtime failure: %v", err), Fatal: true})
		return
	}

	logger.Debug("deploy.started", "deployment_id", deploymentID, "agent_id", req.AgentID, "world_id", req.WorldID)

	sess := &session{
		streamer:     s,
		deploymentID: deploymentID,
		worldID:      req.WorldID,
		out:          out,
		pendingArgs:  make(map[string]json.RawMessage),
		lastArgs:     make(map[string]json.RawMessage),
	}

	for {
		select {
		case <-ctx.Done():
			s.finishOnContext(ctx, out)
			return

		case err, ok := <-runtimeErrs:
			if !ok {
				runtimeErrs = nil
				continue
			}
			if err != nil {
				s.send(ctx, out, core.ErrorEvent{Message: fmt.Sprintf("agent runtime failure: %v", err), Fatal: true})
				return
			}

		case turn, ok := <-turns:
			if !ok {
				// Input exhausted. A pending transport failure beats the
				// synthesized completion; the error channel closes promptly
				// by contract.
				if runtimeErrs != nil {
					if err, ok := <-runtimeErrs; ok && err != nil {
						s.send(ctx, out, core.ErrorEvent{Message: fmt.Sprintf("agent runtime failure: %v", err), Fatal: true})
						return
					}
				}
				s.send(ctx, out, core.CompleteEvent{Summary: "ended without explicit terminal signal"})
				return
			}
			if terminal := sess.consume(ctx, turn); terminal {
				return
			}
		}
	}
}

func existenceFailure(entity, id string, err error) string {
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Sprintf("%s %q: not found", entity, id)
	}
	return fmt.Sprintf("%s %q: %v", entity, id, err)
}

// finishOnContext distinguishes deadline expiry (fatal error event, best
// effort) from plain cancellation (silent close).
func (s *Streamer) finishOnContext(ctx context.Context, out chan<- core.StreamEvent) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		select {
		case out <- core.ErrorEvent{Message: "deployment timed out", Fatal: true}:
		default:
		}
	}
}

// send delivers one event, blocking for backpressure, aborting on cancellation.
func (s *Streamer) send(ctx context.Context, out chan<- core.StreamEvent, ev core.StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// session is the per-deployment translation state: pending tool call
// arguments keyed by call id (with a by-name fallback for runtimes that omit
// ids). It exists only for the lifetime of one stream and owns the output
// channel exclusively.
type session struct {
	streamer     *Streamer
	deploymentID string
	worldID      string
	out          chan<- core.StreamEvent

	pendingArgs map[string]json.RawMessage
	lastArgs    map[string]json.RawMessage
}

// consume translates one turn event into zero or more stream events,
// preserving arrival order. It reports whether the stream is finished.
func (c *session) consume(ctx context.Context, turn core.TurnEvent) bool {
	switch ev := turn.(type) {
	case core.ReasoningTurn:
		// Empty reasoning text is suppressed, not emitted as a blank event.
		if ev.Text == "" {
			return false
		}
		return !c.send(ctx, core.ThinkingEvent{Text: ev.Text})

	case core.TextTurn:
		// Each chunk is forwarded as its own event; merging would hide true
		// arrival timing from the client.
		return !c.send(ctx, core.TextEvent{Text: ev.Text})

	case core.ToolCallTurn:
		if ev.ID != "" {
			c.pendingArgs[ev.ID] = ev.Arguments
		}
		c.lastArgs[ev.Name] = ev.Arguments
		return !c.send(ctx, core.ToolCallEvent{ID: ev.ID, Name: ev.Name, Arguments: ev.Arguments})

	case core.ToolResultTurn:
		return c.consumeToolResult(ctx, ev)

	case core.TerminalTurn:
		if ev.Reason == core.TerminalCompleted {
			summary := ev.Message
			if summary == "" {
				summary = "deployment completed"
			}
			c.send(ctx, core.CompleteEvent{Summary: summary})
		} else {
			msg := ev.Message
			if msg == "" {
				msg = "agent runtime reported failure"
			}
			c.send(ctx, core.ErrorEvent{Message: msg, Fatal: true})
		}
		return true
	}
	// Unknown turn kinds cannot occur: TurnEvent is a closed set.
	return false
}

func (c *session) consumeToolResult(ctx context.Context, ev core.ToolResultTurn) bool {
	s := c.streamer
	if s.actions == nil || !s.actions.WorldAffecting(ev.Name) || ev.IsError {
		// Not an action of ours (or the runtime's own handler already
		// failed): pass the result through untouched.
		return !c.send(ctx, core.ToolResultEvent{ID: ev.ID, Name: ev.Name, Result: ev.Output, IsError: ev.IsError})
	}

	delta, err := s.worlds.Apply(ctx, c.worldID, ev.Name, c.takeArgs(ev))
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		if ae, ok := core.AsActionError(err); ok {
			// Rejected application is data, not a fault: no WorldUpdate and
			// the deployment continues.
			return !c.send(ctx, core.ToolResultEvent{
				ID:   ev.ID,
				Name: ev.Name,
				Result: map[string]any{
					"code":   string(ae.Code),
					"reason": ae.Reason,
				},
				IsError: true,
			})
		}
		c.send(ctx, core.ErrorEvent{Message: fmt.Sprintf("world %q: %v", c.worldID, err), Fatal: true})
		return true
	}

	// A client must never see a result referencing state it has not
	// received yet: the world update goes first.
	if !delta.Empty() {
		if !c.send(ctx, core.WorldUpdateEvent{WorldID: c.worldID, Delta: delta}) {
			return true
		}
	}
	result := ev.Output
	if result == nil {
		result = delta
	}
	return !c.send(ctx, core.ToolResultEvent{ID: ev.ID, Name: ev.Name, Result: result, IsError: false})
}

// takeArgs resolves the arguments for a tool result from the matching call,
// preferring the call id and falling back to the most recent call by name.
func (c *session) takeArgs(ev core.ToolResultTurn) map[string]any {
	raw, ok := c.pendingArgs[ev.ID]
	if ok {
		delete(c.pendingArgs, ev.ID)
	} else {
		raw = c.lastArgs[ev.Name]
	}
	if len(raw) == 0 {
		return nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil
	}
	return args
}

func (c *session) send(ctx context.Context, ev core.StreamEvent) bool {
	return c.streamer.send(ctx, c.out, ev)
}
