package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/ingest"
)

// IngestHandler is the push-side intake for gateways that report telemetry
// themselves instead of (or in addition to) being polled.
type IngestHandler struct {
	svc *ingest.Service
}

func NewIngestHandler(svc *ingest.Service) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type registerRequest struct {
	Name       string             `json:"name"`
	GatewayURL string             `json:"gateway_url"`
	Config     domain.AgentConfig `json:"config"`
}

func (h *IngestHandler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "bad request")
		return
	}
	if req.Name == "" {
		respondBadRequest(w, "name is required")
		return
	}

	agent, err := h.svc.UpsertAgent(r.Context(), req.Name, req.GatewayURL, req.Config)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

type heartbeatRequest struct {
	Status string `json:"status,omitempty"`
}

func (h *IngestHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondBadRequest(w, "bad request")
			return
		}
	}

	if err := h.svc.Heartbeat(r.Context(), chi.URLParam(r, "id"), domain.AgentStatus(req.Status)); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IngestHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	var snapshots []ingest.SessionSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshots); err != nil {
		respondBadRequest(w, "bad request")
		return
	}

	if err := h.svc.IngestSessions(r.Context(), chi.URLParam(r, "id"), snapshots); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IngestHandler) Costs(w http.ResponseWriter, r *http.Request) {
	var inputs []ingest.CostInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		respondBadRequest(w, "bad request")
		return
	}

	stored, err := h.svc.IngestCosts(r.Context(), inputs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"stored": stored})
}

func (h *IngestHandler) Activities(w http.ResponseWriter, r *http.Request) {
	var inputs []ingest.ActivityInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		respondBadRequest(w, "bad request")
		return
	}

	stored, err := h.svc.IngestActivities(r.Context(), inputs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"stored": stored})
}
