package domain

import "time"

// SnitchType tags one discrete escalate/refuse/report behavior.
type SnitchType string

const (
	SnitchAlertFired       SnitchType = "alert_fired"       // fired an alert (tattled to the owner)
	SnitchSafetyRefusal    SnitchType = "safety_refusal"    // refused to do something "unsafe"
	SnitchContentFlag      SnitchType = "content_flag"      // flagged content as inappropriate
	SnitchBudgetWarning    SnitchType = "budget_warning"    // warned about spending
	SnitchPermissionAsk    SnitchType = "permission_ask"    // asked permission instead of just doing it
	SnitchProactiveWarning SnitchType = "proactive_warning" // unprompted "hey you should know..."
	SnitchComplianceReport SnitchType = "compliance_report" // reported its own behavior
	SnitchTattledOnUser    SnitchType = "tattled_on_user"   // told someone about the user
)

type SnitchSeverity string

const (
	SeveritySnitch      SnitchSeverity = "snitch"
	SeverityHallMonitor SnitchSeverity = "hall_monitor"
	SeverityNarc        SnitchSeverity = "narc"
)

// SnitchEvent is an append-only behavioral data point feeding the score.
type SnitchEvent struct {
	ID          string         `json:"id"`
	AgentID     string         `json:"agent_id"`
	Type        SnitchType     `json:"type"`
	Description string         `json:"description"`
	Severity    SnitchSeverity `json:"severity"`
	Timestamp   time.Time      `json:"timestamp"`
}
