package domain

import "time"

type AgentStatus string

const (
	AgentOnline   AgentStatus = "online"
	AgentOffline  AgentStatus = "offline"
	AgentDegraded AgentStatus = "degraded"
)

// AgentConfig carries optional defaults reported by the agent's gateway.
type AgentConfig struct {
	Model   string `json:"model,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// Agent is one monitored instance. Status is set by heartbeats and by the
// offline-detection rule, never directly by the console.
type Agent struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"` // unique across the fleet
	GatewayURL    string      `json:"gateway_url"`
	Status        AgentStatus `json:"status"`
	LastHeartbeat time.Time   `json:"last_heartbeat"`
	LastSeen      time.Time   `json:"last_seen"`
	Config        AgentConfig `json:"config"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
