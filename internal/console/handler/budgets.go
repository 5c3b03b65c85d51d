package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/fleetwatch/internal/budget"
	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/store"
)

type BudgetHandler struct {
	budgets store.BudgetStore
	ledger  *budget.Ledger
	now     func() time.Time
}

func NewBudgetHandler(budgets store.BudgetStore, ledger *budget.Ledger) *BudgetHandler {
	return &BudgetHandler{budgets: budgets, ledger: ledger, now: time.Now}
}

type budgetRequest struct {
	AgentID      string  `json:"agent_id,omitempty"`
	Name         string  `json:"name"`
	Period       string  `json:"period"`
	LimitDollars float64 `json:"limit"`
	HardStop     bool    `json:"hard_stop"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

func validPeriod(p string) bool {
	switch domain.BudgetPeriod(p) {
	case domain.PeriodHourly, domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly:
		return true
	}
	return false
}

func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.budgets.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, budgets)
}

func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.budgets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "bad request")
		return
	}
	if req.Name == "" || !validPeriod(req.Period) || req.LimitDollars <= 0 {
		respondBadRequest(w, "name, a valid period and a positive limit are required")
		return
	}

	now := h.now()
	b := &domain.Budget{
		AgentID:   req.AgentID,
		Name:      req.Name,
		Period:    domain.BudgetPeriod(req.Period),
		Limit:     domain.MoneyFromDollars(req.LimitDollars),
		ResetAt:   budget.NextReset(domain.BudgetPeriod(req.Period), now),
		HardStop:  req.HardStop,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.budgets.Create(r.Context(), b); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

// Update rewrites the mutable fields. Changing the period restarts the
// current window: ResetAt is recomputed from now.
func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "bad request")
		return
	}

	b, err := h.budgets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	now := h.now()
	if req.Name != "" {
		b.Name = req.Name
	}
	if req.LimitDollars > 0 {
		b.Limit = domain.MoneyFromDollars(req.LimitDollars)
	}
	if req.Period != "" {
		if !validPeriod(req.Period) {
			respondBadRequest(w, "invalid period")
			return
		}
		if domain.BudgetPeriod(req.Period) != b.Period {
			b.Period = domain.BudgetPeriod(req.Period)
			b.ResetAt = budget.NextReset(b.Period, now)
		}
	}
	b.HardStop = req.HardStop
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	b.UpdatedAt = now

	if err := h.budgets.Update(r.Context(), b); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

type spendRequest struct {
	AmountDollars float64 `json:"amount"`
}

// Spend applies a manual spend entry to the budget counter, outside the
// cost-ingestion path. The response is the post-apply counter state, so the
// operator sees exceeded/rolled_over for the entry they just booked.
func (h *BudgetHandler) Spend(w http.ResponseWriter, r *http.Request) {
	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "bad request")
		return
	}
	if req.AmountDollars <= 0 {
		respondBadRequest(w, "a positive amount is required")
		return
	}

	res, err := h.ledger.AddSpend(r.Context(), chi.URLParam(r, "id"),
		domain.MoneyFromDollars(req.AmountDollars))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.budgets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
