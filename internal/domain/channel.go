package domain

import "time"

type ChannelType string

const (
	ChannelDiscord ChannelType = "discord"
	ChannelEmail   ChannelType = "email"
	ChannelWebhook ChannelType = "webhook"
)

type ChannelConfig struct {
	WebhookURL string `json:"webhook_url,omitempty"`
	Email      string `json:"email,omitempty"`
	ChannelID  string `json:"channel_id,omitempty"`
}

// NotificationChannel is a delivery target. Alerts reference channels by
// type; actual delivery is performed by an external sender.
type NotificationChannel struct {
	ID       string        `json:"id"`
	Type     ChannelType   `json:"type"`
	Name     string        `json:"name"`
	Config   ChannelConfig `json:"config"`
	IsActive bool          `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
