package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/aicraft/core"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Same-origin policy is enforced by the deployment in front of this
	// server; the API itself is origin agnostic.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleDeployWS starts a deployment and streams its events as enveloped
// JSON text messages over a WebSocket. Parameters come from the query string
// since the upgrade request carries no body.
func (h *handlers) handleDeployWS(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	worldID := r.URL.Query().Get("world_id")
	prompt := r.URL.Query().Get("prompt")
	if agentID == "" || worldID == "" {
		writeInvalidRequest(w, "agent_id and world_id are required")
		return
	}

	deploymentID, events, err := h.craft.Deploy(r.Context(), agentID, worldID, prompt)
	if err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response; just stop the deployment.
		_ = h.craft.CancelDeployment(deploymentID)
		return
	}
	defer conn.Close()

	h.logger.Debug("httpapi.deploy.ws.started", "deployment_id", deploymentID)

	// Discard client messages but surface read failures as disconnect.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-disconnected:
			_ = h.craft.CancelDeployment(deploymentID)
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteTimeout))
				return
			}
			payload, err := core.EncodeEnvelope(ev)
			if err != nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
