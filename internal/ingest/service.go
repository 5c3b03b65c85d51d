// Package ingest is the write-side front of the telemetry store: agent
// registration and heartbeats, session snapshots, cost records and activity
// events. Cost ingestion is also where budget counters move.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/budget"
	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/infra"
	"github.com/xela07ax/fleetwatch/internal/store"
)

// Stopper is the hard-stop side effect of an exceeded budget. The Redis
// controller satisfies it; tests use a local fake.
type Stopper interface {
	Stop(ctx context.Context, agentID string) error
}

type Service struct {
	store   *store.Store
	ledger  *budget.Ledger
	stops   Stopper // optional
	metrics *infra.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(st *store.Store, ledger *budget.Ledger, stops Stopper, metrics *infra.Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:   st,
		ledger:  ledger,
		stops:   stops,
		metrics: metrics,
		logger:  logger.Named("ingest"),
		now:     time.Now,
	}
}

// UpsertAgent registers an agent by its fleet-unique name, or refreshes the
// gateway URL and config of an existing one. Either way the agent comes back
// online.
func (s *Service) UpsertAgent(ctx context.Context, name, gatewayURL string, cfg domain.AgentConfig) (*domain.Agent, error) {
	now := s.now()

	existing, err := s.store.Agents.GetByName(ctx, name)
	switch {
	case err == nil:
		existing.GatewayURL = gatewayURL
		existing.Config = cfg
		existing.Status = domain.AgentOnline
		existing.LastHeartbeat = now
		existing.LastSeen = now
		existing.UpdatedAt = now
		if err := s.store.Agents.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("ingest: updating agent %q: %w", name, err)
		}
		return existing, nil
	case errors.Is(err, domain.ErrNotFound):
		agent := &domain.Agent{
			Name:          name,
			GatewayURL:    gatewayURL,
			Config:        cfg,
			Status:        domain.AgentOnline,
			LastHeartbeat: now,
			LastSeen:      now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.Agents.Create(ctx, agent); err != nil {
			return nil, fmt.Errorf("ingest: creating agent %q: %w", name, err)
		}
		s.logger.Info("agent registered", zap.String("name", name), zap.String("id", agent.ID))
		return agent, nil
	default:
		return nil, fmt.Errorf("ingest: looking up agent %q: %w", name, err)
	}
}

// Heartbeat refreshes liveness. An unknown agent is an error here, unlike the
// bulk ingest paths: a heartbeat names exactly one agent and the caller
// should know it misspoke.
func (s *Service) Heartbeat(ctx context.Context, agentID string, status domain.AgentStatus) error {
	if status == "" {
		status = domain.AgentOnline
	}
	if err := s.store.Agents.Heartbeat(ctx, agentID, status, s.now()); err != nil {
		return fmt.Errorf("ingest: heartbeat for %s: %w", agentID, err)
	}
	s.metrics.IngestedRecords.WithLabelValues("heartbeat").Inc()
	return nil
}

// SessionSnapshot is one session's state as reported by a gateway.
type SessionSnapshot struct {
	SessionKey   string    `json:"session_key"`
	Kind         string    `json:"kind"`
	DisplayName  string    `json:"display_name,omitempty"`
	Channel      string    `json:"channel,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	TotalTokens  int64     `json:"total_tokens"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	CostDollars  float64   `json:"cost"`
	MessageCount int       `json:"message_count"`
}

// IngestSessions upserts a batch of snapshots for one agent, keyed by
// session_key. IsActive is recomputed from last_activity on every ingest.
func (s *Service) IngestSessions(ctx context.Context, agentID string, snapshots []SessionSnapshot) error {
	if _, err := s.store.Agents.Get(ctx, agentID); err != nil {
		return fmt.Errorf("ingest: sessions for %s: %w", agentID, err)
	}
	now := s.now()

	for _, snap := range snapshots {
		if snap.SessionKey == "" {
			s.logger.Warn("session snapshot without a key skipped", zap.String("agent_id", agentID))
			continue
		}

		sess, err := s.store.Sessions.GetByKey(ctx, agentID, snap.SessionKey)
		if errors.Is(err, domain.ErrNotFound) {
			sess = &domain.Session{
				AgentID:    agentID,
				SessionKey: snap.SessionKey,
				StartedAt:  snap.StartedAt,
			}
			s.applySnapshot(sess, snap, now)
			if err := s.store.Sessions.Create(ctx, sess); err != nil {
				return fmt.Errorf("ingest: creating session %s: %w", snap.SessionKey, err)
			}
		} else if err != nil {
			return fmt.Errorf("ingest: loading session %s: %w", snap.SessionKey, err)
		} else {
			s.applySnapshot(sess, snap, now)
			if err := s.store.Sessions.Update(ctx, sess); err != nil {
				return fmt.Errorf("ingest: updating session %s: %w", snap.SessionKey, err)
			}
		}
		s.metrics.IngestedRecords.WithLabelValues("session").Inc()
	}
	return nil
}

func (s *Service) applySnapshot(sess *domain.Session, snap SessionSnapshot, now time.Time) {
	sess.Kind = snap.Kind
	sess.DisplayName = snap.DisplayName
	sess.Channel = snap.Channel
	sess.LastActivity = snap.LastActivity
	sess.TotalTokens = snap.TotalTokens
	sess.InputTokens = snap.InputTokens
	sess.OutputTokens = snap.OutputTokens
	sess.EstimatedCost = domain.MoneyFromDollars(snap.CostDollars)
	sess.MessageCount = snap.MessageCount
	sess.IsActive = sess.ActiveAt(now)
}

// CostInput is one charge as submitted by a gateway or backfill job.
type CostInput struct {
	AgentName        string    `json:"agent_name"`
	SessionKey       string    `json:"session_key,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	InputTokens      int64     `json:"input_tokens"`
	OutputTokens     int64     `json:"output_tokens"`
	CacheReadTokens  int64     `json:"cache_read_tokens,omitempty"`
	CacheWriteTokens int64     `json:"cache_write_tokens,omitempty"`
	CostDollars      float64   `json:"cost"`
	Period           string    `json:"period,omitempty"`
}

// IngestCosts accepts a batch. Records naming an unknown agent are skipped
// with a log line, not an error: one bad row must not reject a backfill batch.
// Returns the number of records stored.
func (s *Service) IngestCosts(ctx context.Context, inputs []CostInput) (int, error) {
	stored := 0
	for _, in := range inputs {
		agent, err := s.store.Agents.GetByName(ctx, in.AgentName)
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("cost record for unknown agent skipped", zap.String("agent_name", in.AgentName))
			continue
		}
		if err != nil {
			return stored, fmt.Errorf("ingest: looking up agent %q: %w", in.AgentName, err)
		}
		if err := s.RecordCost(ctx, agent.ID, in); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// RecordCost stores one immutable cost record and applies its amount to every
// active budget in scope (the agent's own plus global ones). Budget failures
// after the insert are logged, not returned: the record is committed and the
// counters catch up on the next spend.
func (s *Service) RecordCost(ctx context.Context, agentID string, in CostInput) error {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	rec := &domain.CostRecord{
		AgentID:          agentID,
		SessionKey:       in.SessionKey,
		Timestamp:        ts,
		Provider:         in.Provider,
		Model:            in.Model,
		InputTokens:      in.InputTokens,
		OutputTokens:     in.OutputTokens,
		CacheReadTokens:  in.CacheReadTokens,
		CacheWriteTokens: in.CacheWriteTokens,
		Cost:             domain.MoneyFromDollars(in.CostDollars),
		Period:           in.Period,
	}
	if err := s.store.Costs.Insert(ctx, rec); err != nil {
		return fmt.Errorf("ingest: storing cost record: %w", err)
	}
	s.metrics.IngestedRecords.WithLabelValues("cost").Inc()

	budgets, err := s.store.Budgets.ListActive(ctx)
	if err != nil {
		s.logger.Error("listing budgets after cost insert failed", zap.Error(err))
		return nil
	}
	for _, b := range budgets {
		if b.AgentID != "" && b.AgentID != agentID {
			continue
		}
		res, err := s.ledger.AddSpend(ctx, b.ID, rec.Cost)
		if err != nil {
			s.logger.Error("applying spend failed",
				zap.String("budget_id", b.ID), zap.Error(err))
			continue
		}
		if !res.Exceeded {
			continue
		}
		s.metrics.BudgetExceeded.Inc()
		s.logger.Warn("budget limit breached",
			zap.String("budget_id", b.ID),
			zap.String("spend", res.CurrentSpend.String()),
			zap.String("limit", res.Limit.String()),
			zap.Bool("hard_stop", res.HardStop))
		if res.HardStop && s.stops != nil {
			if err := s.stops.Stop(ctx, agentID); err != nil {
				s.logger.Error("hard-stop failed",
					zap.String("agent_id", agentID), zap.Error(err))
			}
		}
	}
	return nil
}

// ActivityInput is one audit-trail event from a gateway.
type ActivityInput struct {
	AgentName  string         `json:"agent_name"`
	Type       string         `json:"type"`
	Summary    string         `json:"summary"`
	Details    map[string]any `json:"details,omitempty"`
	SessionKey string         `json:"session_key,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// IngestActivities appends a batch to the audit trail. Unknown agent names
// are skipped like in IngestCosts. Returns the number stored.
func (s *Service) IngestActivities(ctx context.Context, inputs []ActivityInput) (int, error) {
	stored := 0
	for _, in := range inputs {
		agent, err := s.store.Agents.GetByName(ctx, in.AgentName)
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("activity for unknown agent skipped", zap.String("agent_name", in.AgentName))
			continue
		}
		if err != nil {
			return stored, fmt.Errorf("ingest: looking up agent %q: %w", in.AgentName, err)
		}
		ts := in.Timestamp
		if ts.IsZero() {
			ts = s.now()
		}
		act := &domain.Activity{
			AgentID:    agent.ID,
			Type:       domain.ActivityType(in.Type),
			Summary:    in.Summary,
			Details:    in.Details,
			SessionKey: in.SessionKey,
			Channel:    in.Channel,
			CreatedAt:  ts,
		}
		if err := s.store.Activities.Insert(ctx, act); err != nil {
			return stored, fmt.Errorf("ingest: storing activity: %w", err)
		}
		s.metrics.IngestedRecords.WithLabelValues("activity").Inc()
		stored++
	}
	return stored, nil
}
