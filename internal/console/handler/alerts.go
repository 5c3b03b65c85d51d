package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/fleetwatch/internal/store"
)

type AlertHandler struct {
	alerts store.AlertStore
	now    func() time.Time
}

func NewAlertHandler(alerts store.AlertStore) *AlertHandler {
	return &AlertHandler{alerts: alerts, now: time.Now}
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 500)
	alerts, err := h.alerts.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// Acknowledge stamps the alert once; repeated calls keep the original time.
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if err := h.alerts.Acknowledge(r.Context(), chi.URLParam(r, "id"), h.now()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if err := h.alerts.Resolve(r.Context(), chi.URLParam(r, "id"), h.now()); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
