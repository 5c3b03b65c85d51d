package domain

import "time"

// SessionInactivityWindow is how long a session may stay silent before it is
// no longer considered active. IsActive is a snapshot recomputed on ingest,
// not a live value.
const SessionInactivityWindow = 5 * time.Minute

type Session struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	SessionKey    string    `json:"session_key"` // unique per agent
	Kind          string    `json:"kind"`
	DisplayName   string    `json:"display_name,omitempty"`
	Channel       string    `json:"channel,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	LastActivity  time.Time `json:"last_activity"`
	TotalTokens   int64     `json:"total_tokens"`
	InputTokens   int64     `json:"input_tokens"`
	OutputTokens  int64     `json:"output_tokens"`
	EstimatedCost Money     `json:"estimated_cost"`
	MessageCount  int       `json:"message_count"`
	IsActive      bool      `json:"is_active"`
}

// ActiveAt reports whether the session counts as active at the given instant.
func (s *Session) ActiveAt(now time.Time) bool {
	return now.Sub(s.LastActivity) < SessionInactivityWindow
}
