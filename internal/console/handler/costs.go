package handler

import (
	"net/http"

	"github.com/xela07ax/fleetwatch/internal/costs"
)

type CostHandler struct {
	agg *costs.Aggregator
}

func NewCostHandler(agg *costs.Aggregator) *CostHandler {
	return &CostHandler{agg: agg}
}

// Overview returns today/week/month/last-hour summaries. ?agent_id narrows
// to one agent; omitted means fleet-wide.
func (h *CostHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.agg.Overview(r.Context(), r.URL.Query().Get("agent_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

// Timeseries returns hourly buckets over a trailing window (?hours, default
// 24, max one week). Empty hours are absent from the response.
func (h *CostHandler) Timeseries(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 24*7)
	buckets, err := h.agg.BucketHourly(r.Context(), r.URL.Query().Get("agent_id"), hours)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, buckets)
}
