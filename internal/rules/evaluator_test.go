package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/budget"
	"github.com/xela07ax/fleetwatch/internal/costs"
	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/infra"
	"github.com/xela07ax/fleetwatch/internal/store"
	"github.com/xela07ax/fleetwatch/internal/store/memstore"
)

var evalNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type captureSink struct {
	alerts []*domain.Alert
}

func (s *captureSink) AlertFired(_ context.Context, a *domain.Alert) {
	s.alerts = append(s.alerts, a)
}

type fixture struct {
	store *store.Store
	mem   *memstore.Memstore
	eval  *Evaluator
	sink  *captureSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memstore.New()
	st := mem.Store()
	sink := &captureSink{}
	eval := &Evaluator{
		store:   st,
		costs:   costs.NewAggregator(st.Costs),
		sink:    sink,
		metrics: infra.NewMetrics(nil),
		logger:  zap.NewNop(),
		now:     func() time.Time { return evalNow },
	}
	return &fixture{store: st, mem: mem, eval: eval, sink: sink}
}

func (f *fixture) addAgent(t *testing.T, id, name string, lastHeartbeat time.Time) {
	t.Helper()
	require.NoError(t, f.store.Agents.Create(context.Background(), &domain.Agent{
		ID: id, Name: name, Status: domain.AgentOnline, LastHeartbeat: lastHeartbeat,
	}))
}

func (f *fixture) addRule(t *testing.T, r domain.AlertRule) string {
	t.Helper()
	if r.CooldownMinutes == 0 {
		r.CooldownMinutes = 30
	}
	r.IsActive = true
	require.NoError(t, f.store.Rules.Create(context.Background(), &r))
	return r.ID
}

func TestEvaluateRespectsCooldown(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow.Add(-time.Hour)) // silent for an hour

	recent := evalNow.Add(-10 * time.Minute)
	f.addRule(t, domain.AlertRule{
		ID: "r1", Name: "offline", Type: domain.RuleAgentOffline,
		CooldownMinutes: 30, LastTriggered: &recent,
	})

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evaluated)
	assert.Equal(t, 0, res.Fired, "a rule inside its cooldown stays silent")

	expired := evalNow.Add(-31 * time.Minute)
	require.NoError(t, f.store.Rules.SetLastTriggered(context.Background(), "r1", expired))

	res, err = f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fired, "an expired cooldown no longer gates the rule")
}

func TestBudgetExceededRule(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow)
	f.addRule(t, domain.AlertRule{ID: "r1", Name: "budget", Type: domain.RuleBudgetExceeded})

	require.NoError(t, f.store.Budgets.Create(context.Background(), &domain.Budget{
		ID: "b1", AgentID: "a1", Name: "daily", Period: domain.PeriodDaily,
		Limit:        domain.MoneyFromDollars(5),
		CurrentSpend: domain.MoneyFromDollars(5), // equal counts as exceeded
		ResetAt:      evalNow.Add(12 * time.Hour),
		HardStop:     true, IsActive: true,
	}))

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Fired)

	require.Len(t, f.sink.alerts, 1)
	alert := f.sink.alerts[0]
	assert.Equal(t, domain.SeverityCritical, alert.Severity, "hard-stop budgets escalate to critical")
	assert.Equal(t, "a1", alert.AgentID)
	assert.Equal(t, domain.RuleBudgetExceeded, alert.Type)
}

func TestBudgetExceededFiresPerBreach(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow)
	f.addRule(t, domain.AlertRule{ID: "r1", Name: "budget", Type: domain.RuleBudgetExceeded})

	for _, id := range []string{"b1", "b2"} {
		require.NoError(t, f.store.Budgets.Create(context.Background(), &domain.Budget{
			ID: id, Name: id, Period: domain.PeriodDaily,
			Limit:        domain.MoneyFromDollars(1),
			CurrentSpend: domain.MoneyFromDollars(2),
			ResetAt:      evalNow.Add(12 * time.Hour),
			IsActive:     true,
		}))
	}

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fired, "every matching budget fires its own alert")

	// both breaches share the single cooldown stamp
	rule, err := f.store.Rules.Get(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, rule.LastTriggered)
	assert.Equal(t, evalNow, *rule.LastTriggered)
}

func TestGlobalBudgetBreachHasNoAgentTarget(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow)
	f.addRule(t, domain.AlertRule{
		ID: "r1", Name: "budget", Type: domain.RuleBudgetExceeded, AgentID: "a1",
	})

	require.NoError(t, f.store.Budgets.Create(context.Background(), &domain.Budget{
		ID: "b1", Name: "fleet cap", Period: domain.PeriodDaily,
		Limit:        domain.MoneyFromDollars(1),
		CurrentSpend: domain.MoneyFromDollars(2),
		ResetAt:      evalNow.Add(12 * time.Hour),
		IsActive:     true,
	}))

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Fired)

	require.Len(t, f.sink.alerts, 1)
	assert.Empty(t, f.sink.alerts[0].AgentID,
		"the rule's scoping agent must not be blamed for a fleet-wide breach")

	trail, err := f.store.Activities.RecentByAgent(context.Background(), "a1", 10)
	require.NoError(t, err)
	assert.Empty(t, trail)
}

func TestAgentOfflineRuleMarksAgent(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow.Add(-10*time.Minute))
	f.addAgent(t, "a2", "bravo", evalNow.Add(-time.Minute))
	f.addRule(t, domain.AlertRule{ID: "r1", Name: "offline", Type: domain.RuleAgentOffline})

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fired, "only the silent agent breaches the default 5m window")

	a1, err := f.store.Agents.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentOffline, a1.Status)

	a2, err := f.store.Agents.Get(context.Background(), "a2")
	require.NoError(t, err)
	assert.Equal(t, domain.AgentOnline, a2.Status)
}

func TestErrorSpikeRule(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow)
	f.addRule(t, domain.AlertRule{ID: "r1", Name: "spike", Type: domain.RuleErrorSpike})

	// four recent errors: below the default threshold of five
	for i := 0; i < 4; i++ {
		require.NoError(t, f.store.Activities.Insert(context.Background(), &domain.Activity{
			AgentID: "a1", Type: domain.ActivityError, CreatedAt: evalNow.Add(-time.Minute),
		}))
	}
	// an old error outside the 10m window must not count
	require.NoError(t, f.store.Activities.Insert(context.Background(), &domain.Activity{
		AgentID: "a1", Type: domain.ActivityError, CreatedAt: evalNow.Add(-time.Hour),
	}))

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Fired)

	require.NoError(t, f.store.Activities.Insert(context.Background(), &domain.Activity{
		AgentID: "a1", Type: domain.ActivityError, CreatedAt: evalNow.Add(-time.Minute),
	}))

	res, err = f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fired)
}

func TestSessionLoopRuleNeedsBothSignals(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow)
	f.addRule(t, domain.AlertRule{ID: "r1", Name: "loop", Type: domain.RuleSessionLoop})

	// chatty but cheap: message count alone is not a loop
	require.NoError(t, f.store.Sessions.Create(context.Background(), &domain.Session{
		AgentID: "a1", SessionKey: "s1", IsActive: true,
		MessageCount: 500, TotalTokens: 1000,
	}))

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Fired)

	require.NoError(t, f.store.Sessions.Create(context.Background(), &domain.Session{
		AgentID: "a1", SessionKey: "s2", IsActive: true,
		MessageCount: 101, TotalTokens: 500001,
	}))

	res, err = f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fired)
	assert.Equal(t, domain.SeverityCritical, f.sink.alerts[0].Severity)
}

func TestChannelDisconnectRule(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow)
	f.addAgent(t, "a2", "bravo", evalNow)
	f.addRule(t, domain.AlertRule{ID: "r1", Name: "disc", Type: domain.RuleChannelDisconnect})

	// alpha had a discord session that went quiet
	require.NoError(t, f.store.Sessions.Create(context.Background(), &domain.Session{
		AgentID: "a1", SessionKey: "s1", Channel: "discord", IsActive: false,
	}))
	// bravo never used discord: nothing to disconnect from
	require.NoError(t, f.store.Sessions.Create(context.Background(), &domain.Session{
		AgentID: "a2", SessionKey: "s2", Channel: "webhook", IsActive: false,
	}))

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Fired)
	assert.Equal(t, "a1", f.sink.alerts[0].AgentID)
}

func TestCustomThresholdCostPerHour(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow)
	threshold := 5.0
	f.addRule(t, domain.AlertRule{
		ID: "r1", Name: "burn rate", Type: domain.RuleCustomThreshold,
		Config: domain.RuleConfig{Metric: "cost_per_hour", Threshold: &threshold},
	})

	require.NoError(t, f.store.Costs.Insert(context.Background(), &domain.CostRecord{
		AgentID: "a1", Timestamp: evalNow.Add(-30 * time.Minute),
		Cost: domain.MoneyFromDollars(6),
	}))
	// outside the trailing hour: ignored
	require.NoError(t, f.store.Costs.Insert(context.Background(), &domain.CostRecord{
		AgentID: "a1", Timestamp: evalNow.Add(-2 * time.Hour),
		Cost: domain.MoneyFromDollars(100),
	}))

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fired)
}

func TestCustomThresholdUnknownMetricNeverBreaches(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow)
	f.addRule(t, domain.AlertRule{
		ID: "r1", Name: "mystery", Type: domain.RuleCustomThreshold,
		Config: domain.RuleConfig{Metric: "tokens_per_minute"},
	})

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evaluated)
	assert.Equal(t, 0, res.Fired)
}

func TestUnknownRuleTypeIsSkippedNotFatal(t *testing.T) {
	f := newFixture(t)
	f.addRule(t, domain.AlertRule{ID: "r1", Name: "odd", Type: domain.RuleType("telepathy")})

	res, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Evaluated)
	assert.Equal(t, 0, res.Fired)
}

func TestFireWritesActivityTrail(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow.Add(-time.Hour))
	f.addRule(t, domain.AlertRule{ID: "r1", Name: "offline", Type: domain.RuleAgentOffline})

	_, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)

	trail, err := f.store.Activities.RecentByAgent(context.Background(), "a1", 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, domain.ActivityAlertFired, trail[0].Type)
	assert.Contains(t, trail[0].Summary, "🚨 CRITICAL:")

	alerts, err := f.store.Alerts.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alerts[0].ID, trail[0].Details["alert_id"])
}

// End to end: spend pushes a budget over its limit, the next pass fires
// exactly once, and the cooldown silences the pass after that.
func TestSpendToAlertFlow(t *testing.T) {
	f := newFixture(t)
	f.addAgent(t, "a1", "alpha", evalNow)
	f.addRule(t, domain.AlertRule{ID: "r1", Name: "budget", Type: domain.RuleBudgetExceeded})

	// ResetAt sits in the real future so the ledger's wall clock never
	// triggers a rollover mid-test.
	require.NoError(t, f.store.Budgets.Create(context.Background(), &domain.Budget{
		ID: "b1", AgentID: "a1", Name: "daily", Period: domain.PeriodDaily,
		Limit:    domain.MoneyFromDollars(5),
		ResetAt:  time.Now().Add(12 * time.Hour),
		IsActive: true,
	}))

	ledger := budget.NewLedger(f.store.Budgets, zap.NewNop())
	res, err := ledger.AddSpend(context.Background(), "b1", domain.MoneyFromDollars(6))
	require.NoError(t, err)
	require.True(t, res.Exceeded)

	pass, err := f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pass.Fired)

	pass, err = f.eval.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, pass.Fired, "the cooldown suppresses an immediate repeat")
}
