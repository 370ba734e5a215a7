// Package httpapi exposes the aicraft façade over HTTP: CRUD for agents,
// worlds and tool definitions, plus deployment streaming via SSE or
// WebSocket.
package httpapi

import (
	"net/http"

	"github.com/hupe1980/aicraft"
	"github.com/hupe1980/aicraft/logging"
)

type handlers struct {
	craft  *aicraft.AICraft
	logger logging.Logger
}

// Options holds configuration overrides passed to NewRouter.
type Options struct {
	// Logger receives request diagnostics.
	Logger logging.Logger
}

// NewRouter builds the HTTP handler for an AICraft instance.
func NewRouter(craft *aicraft.AICraft, optFns ...func(o *Options)) http.Handler {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handlers{craft: craft, logger: opts.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)

	mux.HandleFunc("POST /api/agents", h.handleAgentCreate)
	mux.HandleFunc("GET /api/agents", h.handleAgentList)
	mux.HandleFunc("GET /api/agents/{id}", h.handleAgentGet)
	mux.HandleFunc("DELETE /api/agents/{id}", h.handleAgentDelete)

	mux.HandleFunc("POST /api/worlds", h.handleWorldCreate)
	mux.HandleFunc("GET /api/worlds", h.handleWorldList)
	mux.HandleFunc("GET /api/worlds/{id}", h.handleWorldGet)
	mux.HandleFunc("GET /api/worlds/{id}/state", h.handleWorldState)
	mux.HandleFunc("DELETE /api/worlds/{id}", h.handleWorldDelete)

	mux.HandleFunc("POST /api/tools", h.handleToolCreate)
	mux.HandleFunc("GET /api/tools", h.handleToolList)
	mux.HandleFunc("GET /api/tools/{name}", h.handleToolGet)
	mux.HandleFunc("DELETE /api/tools/{name}", h.handleToolDelete)

	mux.HandleFunc("POST /api/deployments", h.handleDeploySSE)
	mux.HandleFunc("GET /api/deployments/ws", h.handleDeployWS)
	mux.HandleFunc("DELETE /api/deployments/{id}", h.handleDeployCancel)

	return mux
}

func (h *handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
