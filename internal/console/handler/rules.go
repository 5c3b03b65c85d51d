package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/rules"
	"github.com/xela07ax/fleetwatch/internal/store"
)

const defaultCooldownMinutes = 30

type RuleHandler struct {
	rules     store.RuleStore
	evaluator *rules.Evaluator
	now       func() time.Time
}

func NewRuleHandler(rs store.RuleStore, evaluator *rules.Evaluator) *RuleHandler {
	return &RuleHandler{rules: rs, evaluator: evaluator, now: time.Now}
}

type ruleRequest struct {
	Name            string            `json:"name"`
	AgentID         string            `json:"agent_id,omitempty"`
	Type            string            `json:"type"`
	Config          domain.RuleConfig `json:"config"`
	Channels        []string          `json:"channels"`
	CooldownMinutes int               `json:"cooldown_minutes"`
	IsActive        *bool             `json:"is_active,omitempty"`
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.rules.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	rule, err := h.rules.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "bad request")
		return
	}
	if req.Name == "" || req.Type == "" {
		respondBadRequest(w, "name and type are required")
		return
	}
	if req.CooldownMinutes <= 0 {
		req.CooldownMinutes = defaultCooldownMinutes
	}

	now := h.now()
	rule := &domain.AlertRule{
		Name:            req.Name,
		AgentID:         req.AgentID,
		Type:            domain.RuleType(req.Type),
		Config:          req.Config,
		Channels:        req.Channels,
		IsActive:        true,
		CooldownMinutes: req.CooldownMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.rules.Create(r.Context(), rule); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "bad request")
		return
	}

	rule, err := h.rules.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Type != "" {
		rule.Type = domain.RuleType(req.Type)
	}
	rule.AgentID = req.AgentID
	rule.Config = req.Config
	if req.Channels != nil {
		rule.Channels = req.Channels
	}
	if req.CooldownMinutes > 0 {
		rule.CooldownMinutes = req.CooldownMinutes
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.UpdatedAt = h.now()

	if err := h.rules.Update(r.Context(), rule); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.rules.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EvaluateNow triggers one evaluation pass outside the scheduler. Useful
// right after creating a rule.
func (h *RuleHandler) EvaluateNow(w http.ResponseWriter, r *http.Request) {
	res, err := h.evaluator.Evaluate(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
