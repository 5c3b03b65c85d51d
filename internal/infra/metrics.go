package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: how long one full rule-evaluation pass took
	EvaluationDuration prometheus.Histogram

	// Traffic: rules considered / alerts fired
	RulesEvaluated prometheus.Counter
	AlertsFired    *prometheus.CounterVec

	// Budgets: rollovers and limit breaches reported by the ledger path
	BudgetExceeded prometheus.Counter

	// Ingestion: accepted telemetry records by kind
	IngestedRecords *prometheus.CounterVec

	// Polling: gateway fetch failures
	GatewayPollFailures prometheus.Counter

	// Saturation: agents currently hard-stopped
	StoppedAgents prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null object: without a registerer the metrics go to a private
	// registry nobody scrapes, so callers never need nil checks.
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		EvaluationDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "fleetwatch_evaluation_duration_seconds",
			Help:    "Histogram of rule evaluation pass latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),

		RulesEvaluated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fleetwatch_rules_evaluated_total",
			Help: "Total number of alert rules considered.",
		}),

		AlertsFired: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "fleetwatch_alerts_fired_total",
			Help: "Total number of alerts fired by rule type and severity.",
		}, []string{"type", "severity"}),

		BudgetExceeded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fleetwatch_budget_exceeded_total",
			Help: "Total number of spend applications that breached a budget limit.",
		}),

		IngestedRecords: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "fleetwatch_ingested_records_total",
			Help: "Total telemetry records accepted by kind.",
		}, []string{"kind"}), // kinds: session, cost, activity, heartbeat

		GatewayPollFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "fleetwatch_gateway_poll_failures_total",
			Help: "Total failed gateway session fetches.",
		}),

		StoppedAgents: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "fleetwatch_stopped_agents",
			Help: "Number of agents currently under a hard-stop.",
		}),
	}
}
