package httpapi

import (
	"net/http"

	"github.com/hupe1980/aicraft/core"
)

type createAgentRequest struct {
	Name    string `json:"name"`
	Persona string `json:"persona,omitempty"`
}

func (h *handlers) handleAgentCreate(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}
	if req.Name == "" {
		writeInvalidRequest(w, "name is required")
		return
	}
	rec, err := h.craft.CreateAgent(r.Context(), req.Name, req.Persona)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handlers) handleAgentList(w http.ResponseWriter, r *http.Request) {
	agents, err := h.craft.ListAgents(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if agents == nil {
		agents = []core.AgentRecord{}
	}
	writeJSON(w, http.StatusOK, agents)
}

func (h *handlers) handleAgentGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.craft.GetAgent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) handleAgentDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.craft.DeleteAgent(r.Context(), r.PathValue("id")); err != nil {
		writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createWorldRequest struct {
	Name      string            `json:"name"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Obstacles []core.Position   `json:"obstacles,omitempty"`
	Items     []core.PlacedItem `json:"items,omitempty"`
	Start     core.Position     `json:"start"`
}

func (h *handlers) handleWorldCreate(w http.ResponseWriter, r *http.Request) {
	var req createWorldRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}
	rec, err := h.craft.CreateWorld(r.Context(), core.WorldRecord{
		Name:      req.Name,
		Width:     req.Width,
		Height:    req.Height,
		Obstacles: req.Obstacles,
		Items:     req.Items,
		Start:     req.Start,
	})
	if err != nil {
		// Validation failures (bad dimensions, out-of-bounds placements)
		// are the caller's fault.
		writeInvalidRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handlers) handleWorldList(w http.ResponseWriter, r *http.Request) {
	worlds, err := h.craft.ListWorlds(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if worlds == nil {
		worlds = []core.WorldRecord{}
	}
	writeJSON(w, http.StatusOK, worlds)
}

func (h *handlers) handleWorldGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.craft.GetWorld(r.Context(), r.PathValue("id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type worldStateResponse struct {
	ID        string            `json:"id"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Obstacles []core.Position   `json:"obstacles"`
	Items     []core.PlacedItem `json:"items"`
	Agent     core.Position     `json:"agent"`
}

func (h *handlers) handleWorldState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.craft.WorldState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	resp := worldStateResponse{
		ID:        snap.ID,
		Width:     snap.Width,
		Height:    snap.Height,
		Obstacles: make([]core.Position, 0, len(snap.Obstacles)),
		Items:     make([]core.PlacedItem, 0, len(snap.Items)),
		Agent:     snap.Agent,
	}
	for p := range snap.Obstacles {
		resp.Obstacles = append(resp.Obstacles, p)
	}
	for p, kind := range snap.Items {
		resp.Items = append(resp.Items, core.PlacedItem{Pos: p, Kind: kind})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) handleWorldDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.craft.DeleteWorld(r.Context(), r.PathValue("id")); err != nil {
		writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createToolRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

func (h *handlers) handleToolCreate(w http.ResponseWriter, r *http.Request) {
	var req createToolRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}
	if req.Name == "" {
		writeInvalidRequest(w, "name is required")
		return
	}
	// Definitions created over the API have no handler bound yet; execution
	// binding happens at server configuration time.
	rec, err := h.craft.CreateTool(r.Context(), core.ToolRecord{
		Name:        req.Name,
		Description: req.Description,
		Parameters:  req.Parameters,
	}, nil)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handlers) handleToolList(w http.ResponseWriter, r *http.Request) {
	tools, err := h.craft.ListTools(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if tools == nil {
		tools = []core.ToolRecord{}
	}
	writeJSON(w, http.StatusOK, tools)
}

func (h *handlers) handleToolGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.craft.GetTool(r.Context(), r.PathValue("name"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) handleToolDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.craft.DeleteTool(r.Context(), r.PathValue("name")); err != nil {
		writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
