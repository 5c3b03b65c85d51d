package domain

import "time"

// CostRecord is one immutable token/dollar charge. Records are append-only
// and may arrive out of timestamp order (backfill).
type CostRecord struct {
	ID               string    `json:"id"`
	AgentID          string    `json:"agent_id"`
	SessionKey       string    `json:"session_key,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	InputTokens      int64     `json:"input_tokens"`
	OutputTokens     int64     `json:"output_tokens"`
	CacheReadTokens  int64     `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int64     `json:"cache_write_tokens,omitempty"`
	Cost             Money     `json:"cost"`
	Period           string    `json:"period"` // ingestion granularity tag
}
