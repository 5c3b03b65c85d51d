package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/store"
)

// StopToggler is the hard-stop control surface exposed to operators.
type StopToggler interface {
	Stop(ctx context.Context, agentID string) error
	Resume(ctx context.Context, agentID string) error
	IsStopped(agentID string) bool
}

type AgentHandler struct {
	agents store.AgentStore
	stops  StopToggler
	logger *zap.Logger
}

func NewAgentHandler(agents store.AgentStore, stops StopToggler, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{agents: agents, stops: stops, logger: logger}
}

type agentView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	GatewayURL    string `json:"gateway_url"`
	Status        string `json:"status"`
	LastHeartbeat string `json:"last_heartbeat"`
	Stopped       bool   `json:"stopped"`
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	views := make([]agentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, agentView{
			ID:            a.ID,
			Name:          a.Name,
			GatewayURL:    a.GatewayURL,
			Status:        string(a.Status),
			LastHeartbeat: a.LastHeartbeat.Format("2006-01-02T15:04:05Z07:00"),
			Stopped:       h.stops.IsStopped(a.ID),
		})
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	agent, err := h.agents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

// Stop puts the agent under a hard-stop immediately.
func (h *AgentHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

func (h *AgentHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *AgentHandler) toggle(w http.ResponseWriter, r *http.Request, stop bool) {
	id := chi.URLParam(r, "id")
	if _, err := h.agents.Get(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	var err error
	if stop {
		err = h.stops.Stop(r.Context(), id)
	} else {
		err = h.stops.Resume(r.Context(), id)
	}
	if err != nil {
		h.logger.Error("stop toggle failed", zap.String("agent_id", id), zap.Error(err))
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
