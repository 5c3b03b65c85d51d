package handler

import (
	"net/http"

	"github.com/xela07ax/fleetwatch/internal/costs"
	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/store"
)

type DashboardHandler struct {
	store *store.Store
	agg   *costs.Aggregator
	stops StopToggler
}

func NewDashboardHandler(st *store.Store, agg *costs.Aggregator, stops StopToggler) *DashboardHandler {
	return &DashboardHandler{store: st, agg: agg, stops: stops}
}

type dashboardStats struct {
	TotalAgents   int     `json:"total_agents"`
	OnlineAgents  int     `json:"online_agents"`
	StoppedAgents int     `json:"stopped_agents"`
	OpenAlerts    int     `json:"open_alerts"`
	CostToday     float64 `json:"cost_today"`
	CostLastHour  float64 `json:"cost_last_hour"`
}

// GetStats is the single fleet-health snapshot the dashboard front page
// renders.
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agents, err := h.store.Agents.List(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	stats := dashboardStats{TotalAgents: len(agents)}
	for _, a := range agents {
		if a.Status == domain.AgentOnline {
			stats.OnlineAgents++
		}
		if h.stops.IsStopped(a.ID) {
			stats.StoppedAgents++
		}
	}

	alerts, err := h.store.Alerts.ListRecent(ctx, 500)
	if err != nil {
		respondError(w, err)
		return
	}
	for _, a := range alerts {
		if a.ResolvedAt == nil {
			stats.OpenAlerts++
		}
	}

	overview, err := h.agg.Overview(ctx, "")
	if err != nil {
		respondError(w, err)
		return
	}
	stats.CostToday = overview.Today.Cost.Dollars()
	stats.CostLastHour = overview.LastHour.Cost.Dollars()

	respondJSON(w, http.StatusOK, stats)
}
