// Package store defines the telemetry store boundary the engine reads and
// writes through. The access patterns are deliberately narrow (point
// get/insert/patch, scan-all, range scan by agent+time, recent-N by agent)
// so any backend satisfying them is interchangeable.
package store

import (
	"context"
	"time"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type AgentStore interface {
	Get(ctx context.Context, id string) (*domain.Agent, error)
	GetByName(ctx context.Context, name string) (*domain.Agent, error)
	List(ctx context.Context) ([]domain.Agent, error)
	Create(ctx context.Context, a *domain.Agent) error
	Update(ctx context.Context, a *domain.Agent) error
	// SetStatus patches only the status column.
	SetStatus(ctx context.Context, id string, status domain.AgentStatus) error
	// Heartbeat patches status and both liveness timestamps.
	Heartbeat(ctx context.Context, id string, status domain.AgentStatus, at time.Time) error
}

type SessionStore interface {
	ListByAgent(ctx context.Context, agentID string) ([]domain.Session, error)
	// GetByKey returns domain.ErrNotFound when the (agent, key) pair is new.
	GetByKey(ctx context.Context, agentID, sessionKey string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Update(ctx context.Context, s *domain.Session) error
}

type CostStore interface {
	Insert(ctx context.Context, c *domain.CostRecord) error
	// ListRange returns records with timestamp in [start, end). An empty
	// agentID scans across all agents.
	ListRange(ctx context.Context, agentID string, start, end time.Time) ([]domain.CostRecord, error)
}

type BudgetStore interface {
	Get(ctx context.Context, id string) (*domain.Budget, error)
	List(ctx context.Context) ([]domain.Budget, error)
	ListActive(ctx context.Context) ([]domain.Budget, error)
	Create(ctx context.Context, b *domain.Budget) error
	Update(ctx context.Context, b *domain.Budget) error
	Delete(ctx context.Context, id string) error
	// Mutate applies fn to the budget under a per-record serialization
	// boundary (transaction or lock) so concurrent spends never lose
	// updates. Returns domain.ErrNotFound if the budget is gone.
	Mutate(ctx context.Context, id string, fn func(*domain.Budget) error) (*domain.Budget, error)
}

type RuleStore interface {
	Get(ctx context.Context, id string) (*domain.AlertRule, error)
	List(ctx context.Context) ([]domain.AlertRule, error)
	ListActive(ctx context.Context) ([]domain.AlertRule, error)
	Create(ctx context.Context, r *domain.AlertRule) error
	Update(ctx context.Context, r *domain.AlertRule) error
	Delete(ctx context.Context, id string) error
	SetLastTriggered(ctx context.Context, id string, at time.Time) error
}

type AlertStore interface {
	Insert(ctx context.Context, a *domain.Alert) error
	ListRecent(ctx context.Context, limit int) ([]domain.Alert, error)
	// Acknowledge and Resolve are set-once: a timestamp already present is
	// kept, never overwritten or cleared.
	Acknowledge(ctx context.Context, id string, at time.Time) error
	Resolve(ctx context.Context, id string, at time.Time) error
}

type ActivityStore interface {
	Insert(ctx context.Context, a *domain.Activity) error
	// RecentByAgent returns up to limit newest-first activities.
	RecentByAgent(ctx context.Context, agentID string, limit int) ([]domain.Activity, error)
	Recent(ctx context.Context, limit int) ([]domain.Activity, error)
}

type SnitchStore interface {
	Insert(ctx context.Context, e *domain.SnitchEvent) error
	ListByAgent(ctx context.Context, agentID string) ([]domain.SnitchEvent, error)
}

type ChannelStore interface {
	List(ctx context.Context) ([]domain.NotificationChannel, error)
	Create(ctx context.Context, c *domain.NotificationChannel) error
	Update(ctx context.Context, c *domain.NotificationChannel) error
	Delete(ctx context.Context, id string) error
}

type OperatorStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.Operator, error)
}

// Store bundles the per-entity stores a component may need. Components
// should still declare the narrow interfaces they actually use.
type Store struct {
	Agents     AgentStore
	Sessions   SessionStore
	Costs      CostStore
	Budgets    BudgetStore
	Rules      RuleStore
	Alerts     AlertStore
	Activities ActivityStore
	Snitches   SnitchStore
	Channels   ChannelStore
	Operators  OperatorStore
}
