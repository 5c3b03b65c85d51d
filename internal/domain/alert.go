package domain

import "time"

// RuleType is a closed enum; the evaluator dispatches on it exhaustively.
// A persisted rule carrying an unknown type simply never breaches.
type RuleType string

const (
	RuleBudgetExceeded    RuleType = "budget_exceeded"
	RuleAgentOffline      RuleType = "agent_offline"
	RuleErrorSpike        RuleType = "error_spike"
	RuleSessionLoop       RuleType = "session_loop"
	RuleChannelDisconnect RuleType = "channel_disconnect"
	RuleCustomThreshold   RuleType = "custom_threshold"
)

// RuleConfig holds the optional knobs a predicate may read. Each rule type
// uses only the fields it documents; the rest are ignored.
type RuleConfig struct {
	Threshold     *float64 `json:"threshold,omitempty"`
	WindowMinutes *int     `json:"window_minutes,omitempty"`
	Comparison    string   `json:"comparison,omitempty"` // "gt", "lt", "eq"
	Metric        string   `json:"metric,omitempty"`
}

func (c RuleConfig) ThresholdOr(def float64) float64 {
	if c.Threshold == nil {
		return def
	}
	return *c.Threshold
}

func (c RuleConfig) WindowOr(def time.Duration) time.Duration {
	if c.WindowMinutes == nil {
		return def
	}
	return time.Duration(*c.WindowMinutes) * time.Minute
}

// AlertRule is a persisted alerting rule. LastTriggered lives on the record
// itself so cooldown memory survives restarts; only the evaluator writes it.
type AlertRule struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	AgentID         string     `json:"agent_id,omitempty"` // empty = all agents
	Type            RuleType   `json:"type"`
	Config          RuleConfig `json:"config"`
	Channels        []string   `json:"channels"`
	IsActive        bool       `json:"is_active"`
	CooldownMinutes int        `json:"cooldown_minutes"`
	LastTriggered   *time.Time `json:"last_triggered,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InCooldown reports whether the rule fired too recently to fire again.
func (r *AlertRule) InCooldown(now time.Time) bool {
	if r.LastTriggered == nil {
		return false
	}
	return now.Sub(*r.LastTriggered) < time.Duration(r.CooldownMinutes)*time.Minute
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is an immutable breach record, except for the two acknowledgement
// timestamps which are set once and never cleared.
type Alert struct {
	ID             string         `json:"id"`
	RuleID         string         `json:"rule_id"`
	AgentID        string         `json:"agent_id,omitempty"` // empty for global-scope breaches
	Type           RuleType       `json:"type"`
	Severity       Severity       `json:"severity"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Data           map[string]any `json:"data,omitempty"`
	Channels       []string       `json:"channels"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
