package httpapi

import (
	"fmt"
	"net/http"

	"github.com/hupe1980/aicraft/core"
)

type deployRequest struct {
	AgentID string `json:"agent_id"`
	WorldID string `json:"world_id"`
	Prompt  string `json:"prompt,omitempty"`
}

// handleDeploySSE starts a deployment and streams its events as SSE frames.
// Each frame carries the event type in the `event:` field so a browser
// EventSource can subscribe per type.
func (h *handlers) handleDeploySSE(w http.ResponseWriter, r *http.Request) {
	var req deployRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}
	if req.AgentID == "" || req.WorldID == "" {
		writeInvalidRequest(w, "agent_id and world_id are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errorCodeRuntime, "streaming is unsupported by response writer")
		return
	}

	deploymentID, events, err := h.craft.Deploy(r.Context(), req.AgentID, req.WorldID, req.Prompt)
	if err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Deployment-Id", deploymentID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug("httpapi.deploy.sse.started", "deployment_id", deploymentID)

	for {
		select {
		case <-r.Context().Done():
			// Client went away; the deployment context is derived from the
			// request so the streamer shuts down on its own.
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, flusher, ev); err != nil {
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, ev core.StreamEvent) error {
	data, err := core.EncodeEvent(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type(), data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func (h *handlers) handleDeployCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.craft.CancelDeployment(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, errorCodeNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
