package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/fleetwatch/internal/store"
)

type ActivityHandler struct {
	activities store.ActivityStore
}

func NewActivityHandler(activities store.ActivityStore) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 500)
	list, err := h.activities.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *ActivityHandler) RecentByAgent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 500)
	list, err := h.activities.RecentByAgent(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}
