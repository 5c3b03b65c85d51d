package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/score"
)

type SnitchHandler struct {
	engine *score.Engine
}

func NewSnitchHandler(engine *score.Engine) *SnitchHandler {
	return &SnitchHandler{engine: engine}
}

type snitchRequest struct {
	AgentID     string `json:"agent_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

func (h *SnitchHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req snitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "bad request")
		return
	}
	if req.AgentID == "" || req.Type == "" {
		respondBadRequest(w, "agent_id and type are required")
		return
	}
	if req.Severity == "" {
		req.Severity = string(domain.SeveritySnitch)
	}

	ev, err := h.engine.Record(r.Context(), req.AgentID,
		domain.SnitchType(req.Type), req.Description, domain.SnitchSeverity(req.Severity))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ev)
}

func (h *SnitchHandler) AgentScore(w http.ResponseWriter, r *http.Request) {
	card, err := h.engine.AgentScore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *SnitchHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.Leaderboard(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
