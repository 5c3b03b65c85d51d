// Package rules is the scheduler-invoked alerting core. One Evaluate pass
// walks every active rule, gates it on its persisted cooldown, dispatches to
// the type-specific predicate and fires alerts for each breach.
package rules

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/costs"
	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/infra"
	"github.com/xela07ax/fleetwatch/internal/store"
)

const (
	defaultOfflineWindow  = 5 * time.Minute
	defaultSpikeWindow    = 10 * time.Minute
	defaultSpikeThreshold = 5
	defaultCostThreshold  = 5 // dollars per trailing hour

	// session_loop heuristics: both must hold for a suspected runaway loop
	loopMessageCount = 100
	loopTokenCount   = 500000

	// error_spike inspects at most this many recent activities per agent
	spikeActivityDepth = 200
)

// AlertSink receives every fired alert. Delivery to Discord/email/webhook
// happens outside this process; the sink only hands the alert off.
type AlertSink interface {
	AlertFired(ctx context.Context, a *domain.Alert)
}

type Evaluator struct {
	store   *store.Store
	costs   *costs.Aggregator
	sink    AlertSink // optional
	metrics *infra.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewEvaluator(st *store.Store, agg *costs.Aggregator, sink AlertSink, metrics *infra.Metrics, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		store:   st,
		costs:   agg,
		sink:    sink,
		metrics: metrics,
		logger:  logger.Named("rule-evaluator"),
		now:     time.Now,
	}
}

type Result struct {
	Evaluated int `json:"evaluated"`
	Fired     int `json:"fired"`
}

// breach is one predicate match within a rule pass.
type breach struct {
	agentID  string // empty for global-scope breaches
	severity domain.Severity
	title    string
	message  string
	data     map[string]any
}

// Evaluate runs one pass. Matches within a single rule are NOT deduplicated:
// if a rule matches N agents, all N fire now and the shared cooldown then
// silences the rule as a whole. Store failures abort the pass; rules fired
// before the failure stay committed (each fire is its own atomic unit).
func (e *Evaluator) Evaluate(ctx context.Context) (Result, error) {
	start := e.now()
	defer func() {
		e.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	active, err := e.store.Rules.ListActive(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("rules: listing active rules: %w", err)
	}

	var res Result
	for i := range active {
		rule := &active[i]
		res.Evaluated++
		e.metrics.RulesEvaluated.Inc()

		if rule.InCooldown(e.now()) {
			continue
		}

		breaches, err := e.dispatch(ctx, rule)
		if err != nil {
			return res, fmt.Errorf("rules: evaluating %q: %w", rule.Name, err)
		}

		for _, b := range breaches {
			if err := e.fire(ctx, rule, b); err != nil {
				return res, fmt.Errorf("rules: firing %q: %w", rule.Name, err)
			}
			res.Fired++
		}
	}

	e.logger.Debug("evaluation pass complete",
		zap.Int("evaluated", res.Evaluated),
		zap.Int("fired", res.Fired))
	return res, nil
}

// dispatch routes the rule to its predicate. The enum is closed: anything
// else is treated as "never breaches", not an error, so a half-configured
// rule cannot stall the pass.
func (e *Evaluator) dispatch(ctx context.Context, rule *domain.AlertRule) ([]breach, error) {
	switch rule.Type {
	case domain.RuleBudgetExceeded:
		return e.evalBudgetExceeded(ctx)
	case domain.RuleAgentOffline:
		return e.evalAgentOffline(ctx, rule)
	case domain.RuleErrorSpike:
		return e.evalErrorSpike(ctx, rule)
	case domain.RuleSessionLoop:
		return e.evalSessionLoop(ctx)
	case domain.RuleChannelDisconnect:
		return e.evalChannelDisconnect(ctx)
	case domain.RuleCustomThreshold:
		return e.evalCustomThreshold(ctx, rule)
	default:
		return nil, nil
	}
}

func (e *Evaluator) evalBudgetExceeded(ctx context.Context) ([]breach, error) {
	budgets, err := e.store.Budgets.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var out []breach
	for _, b := range budgets {
		if b.CurrentSpend < b.Limit {
			continue
		}
		severity := domain.SeverityWarning
		if b.HardStop {
			severity = domain.SeverityCritical
		}
		// A fleet-wide budget breach stays fleet-wide: the alert carries no
		// agent and no single agent's trail records it.
		out = append(out, breach{
			agentID:  b.AgentID,
			severity: severity,
			title:    fmt.Sprintf("Budget %q exceeded", b.Name),
			message:  fmt.Sprintf("Spend %s >= limit %s (%s)", b.CurrentSpend, b.Limit, b.Period),
			data: map[string]any{
				"budget_id":     b.ID,
				"current_spend": b.CurrentSpend.Dollars(),
				"limit":         b.Limit.Dollars(),
				"hard_stop":     b.HardStop,
			},
		})
	}
	return out, nil
}

// evalAgentOffline is the one predicate with a collateral write: every agent
// it matches is also patched to status offline.
func (e *Evaluator) evalAgentOffline(ctx context.Context, rule *domain.AlertRule) ([]breach, error) {
	agents, err := e.store.Agents.List(ctx)
	if err != nil {
		return nil, err
	}

	window := rule.Config.WindowOr(defaultOfflineWindow)
	now := e.now()

	var out []breach
	for _, a := range agents {
		silence := now.Sub(a.LastHeartbeat)
		if silence <= window {
			continue
		}
		if err := e.store.Agents.SetStatus(ctx, a.ID, domain.AgentOffline); err != nil {
			return nil, err
		}
		out = append(out, breach{
			agentID:  a.ID,
			severity: domain.SeverityCritical,
			title:    fmt.Sprintf("Agent %q is offline", a.Name),
			message:  fmt.Sprintf("No heartbeat for %d minutes", int(math.Round(silence.Minutes()))),
		})
	}
	return out, nil
}

func (e *Evaluator) evalErrorSpike(ctx context.Context, rule *domain.AlertRule) ([]breach, error) {
	agents, err := e.store.Agents.List(ctx)
	if err != nil {
		return nil, err
	}

	window := rule.Config.WindowOr(defaultSpikeWindow)
	threshold := int(rule.Config.ThresholdOr(defaultSpikeThreshold))
	cutoff := e.now().Add(-window)

	var out []breach
	for _, a := range agents {
		recent, err := e.store.Activities.RecentByAgent(ctx, a.ID, spikeActivityDepth)
		if err != nil {
			return nil, err
		}
		errorCount := 0
		for _, act := range recent {
			if act.Type == domain.ActivityError && act.CreatedAt.After(cutoff) {
				errorCount++
			}
		}
		if errorCount < threshold {
			continue
		}
		out = append(out, breach{
			agentID:  a.ID,
			severity: domain.SeverityWarning,
			title:    fmt.Sprintf("Error spike on %q", a.Name),
			message:  fmt.Sprintf("%d errors in last %d minutes", errorCount, int(window.Minutes())),
			data:     map[string]any{"error_count": errorCount},
		})
	}
	return out, nil
}

func (e *Evaluator) evalSessionLoop(ctx context.Context) ([]breach, error) {
	agents, err := e.store.Agents.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []breach
	for _, a := range agents {
		sessions, err := e.store.Sessions.ListByAgent(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			if !s.IsActive {
				continue
			}
			if s.MessageCount <= loopMessageCount || s.TotalTokens <= loopTokenCount {
				continue
			}
			name := s.DisplayName
			if name == "" {
				name = s.SessionKey
			}
			out = append(out, breach{
				agentID:  a.ID,
				severity: domain.SeverityCritical,
				title:    fmt.Sprintf("Possible loop on %q", a.Name),
				message:  fmt.Sprintf("Session %s has %d messages and %d tokens", name, s.MessageCount, s.TotalTokens),
				data:     map[string]any{"session_key": s.SessionKey},
			})
		}
	}
	return out, nil
}

// evalChannelDisconnect flags agents that once had a Discord-channel session
// but currently have no active one.
func (e *Evaluator) evalChannelDisconnect(ctx context.Context) ([]breach, error) {
	agents, err := e.store.Agents.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []breach
	for _, a := range agents {
		sessions, err := e.store.Sessions.ListByAgent(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		everDiscord, activeDiscord := false, false
		for _, s := range sessions {
			if s.Channel != string(domain.ChannelDiscord) {
				continue
			}
			everDiscord = true
			if s.IsActive {
				activeDiscord = true
				break
			}
		}
		if !everDiscord || activeDiscord {
			continue
		}
		out = append(out, breach{
			agentID:  a.ID,
			severity: domain.SeverityWarning,
			title:    fmt.Sprintf("Channel disconnect on %q", a.Name),
			message:  "No active Discord sessions",
		})
	}
	return out, nil
}

func (e *Evaluator) evalCustomThreshold(ctx context.Context, rule *domain.AlertRule) ([]breach, error) {
	// cost_per_hour is the only metric implemented today; any other value
	// simply never breaches.
	if rule.Config.Metric != "cost_per_hour" {
		return nil, nil
	}

	agents, err := e.store.Agents.List(ctx)
	if err != nil {
		return nil, err
	}

	threshold := rule.Config.ThresholdOr(defaultCostThreshold)
	now := e.now()

	var out []breach
	for _, a := range agents {
		sum, err := e.costs.SumCosts(ctx, a.ID, now.Add(-time.Hour), now)
		if err != nil {
			return nil, err
		}
		hourCost := sum.Cost.Dollars()
		if hourCost <= threshold {
			continue
		}
		out = append(out, breach{
			agentID:  a.ID,
			severity: domain.SeverityWarning,
			title:    fmt.Sprintf("High hourly cost on %q", a.Name),
			message:  fmt.Sprintf("$%.2f/hr exceeds $%.2f threshold", hourCost, threshold),
			data:     map[string]any{"cost_per_hour": hourCost},
		})
	}
	return out, nil
}

// fire is one atomic breach commit: alert row, cooldown timestamp, activity
// trail, then the hand-off to the sink.
func (e *Evaluator) fire(ctx context.Context, rule *domain.AlertRule, b breach) error {
	now := e.now()

	alert := &domain.Alert{
		RuleID:    rule.ID,
		AgentID:   b.agentID,
		Type:      rule.Type,
		Severity:  b.severity,
		Title:     b.title,
		Message:   b.message,
		Data:      b.data,
		Channels:  append([]string(nil), rule.Channels...),
		CreatedAt: now,
	}
	if err := e.store.Alerts.Insert(ctx, alert); err != nil {
		return err
	}
	if err := e.store.Rules.SetLastTriggered(ctx, rule.ID, now); err != nil {
		return err
	}
	if b.agentID != "" {
		activity := &domain.Activity{
			AgentID:   b.agentID,
			Type:      domain.ActivityAlertFired,
			Summary:   fmt.Sprintf("🚨 %s: %s", strings.ToUpper(string(b.severity)), b.title),
			Details:   map[string]any{"alert_id": alert.ID, "message": b.message},
			CreatedAt: now,
		}
		if err := e.store.Activities.Insert(ctx, activity); err != nil {
			return err
		}
	}

	if e.sink != nil {
		e.sink.AlertFired(ctx, alert)
	}

	e.metrics.AlertsFired.WithLabelValues(string(rule.Type), string(b.severity)).Inc()
	e.logger.Info("alert fired",
		zap.String("rule", rule.Name),
		zap.String("severity", string(b.severity)),
		zap.String("title", b.title))
	return nil
}
