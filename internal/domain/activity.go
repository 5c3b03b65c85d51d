package domain

import "time"

type ActivityType string

const (
	ActivityMessageSent     ActivityType = "message_sent"
	ActivityMessageReceived ActivityType = "message_received"
	ActivityToolCall        ActivityType = "tool_call"
	ActivitySessionStarted  ActivityType = "session_started"
	ActivitySessionEnded    ActivityType = "session_ended"
	ActivityError           ActivityType = "error"
	ActivityHeartbeat       ActivityType = "heartbeat"
	ActivityAlertFired      ActivityType = "alert_fired"
)

// Activity is one entry in the append-only audit trail of what an agent did.
type Activity struct {
	ID         string         `json:"id"`
	AgentID    string         `json:"agent_id"`
	Type       ActivityType   `json:"type"`
	Summary    string         `json:"summary"`
	Details    map[string]any `json:"details,omitempty"`
	SessionKey string         `json:"session_key,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
