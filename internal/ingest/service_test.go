package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/budget"
	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/infra"
	"github.com/xela07ax/fleetwatch/internal/store"
	"github.com/xela07ax/fleetwatch/internal/store/memstore"
)

var ingestNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeStopper struct {
	stopped []string
}

func (f *fakeStopper) Stop(_ context.Context, agentID string) error {
	f.stopped = append(f.stopped, agentID)
	return nil
}

func newTestService(t *testing.T) (*Service, *store.Store, *fakeStopper) {
	t.Helper()
	st := memstore.New().Store()
	stops := &fakeStopper{}
	ledger := budget.NewLedger(st.Budgets, zap.NewNop())
	svc := &Service{
		store:   st,
		ledger:  ledger,
		stops:   stops,
		metrics: infra.NewMetrics(nil),
		logger:  zap.NewNop(),
		now:     func() time.Time { return ingestNow },
	}
	return svc, st, stops
}

func TestUpsertAgentCreatesThenUpdates(t *testing.T) {
	svc, st, _ := newTestService(t)

	created, err := svc.UpsertAgent(context.Background(), "alpha", "http://one", domain.AgentConfig{})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.AgentOnline, created.Status)

	updated, err := svc.UpsertAgent(context.Background(), "alpha", "http://two", domain.AgentConfig{Model: "m2"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID, "the name is the identity, not a new row")
	assert.Equal(t, "http://two", updated.GatewayURL)

	all, err := st.Agents.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestIngestSessionsUpsertsByKey(t *testing.T) {
	svc, st, _ := newTestService(t)
	agent, err := svc.UpsertAgent(context.Background(), "alpha", "", domain.AgentConfig{})
	require.NoError(t, err)

	snap := SessionSnapshot{
		SessionKey:   "s1",
		LastActivity: ingestNow.Add(-time.Minute),
		MessageCount: 3,
		CostDollars:  0.42,
	}
	require.NoError(t, svc.IngestSessions(context.Background(), agent.ID, []SessionSnapshot{snap}))

	sess, err := st.Sessions.GetByKey(context.Background(), agent.ID, "s1")
	require.NoError(t, err)
	assert.True(t, sess.IsActive, "activity a minute ago is inside the 5m window")
	assert.Equal(t, domain.MoneyFromDollars(0.42), sess.EstimatedCost)

	// the same key six minutes stale flips the session inactive
	snap.LastActivity = ingestNow.Add(-6 * time.Minute)
	snap.MessageCount = 9
	require.NoError(t, svc.IngestSessions(context.Background(), agent.ID, []SessionSnapshot{snap}))

	sess, err = st.Sessions.GetByKey(context.Background(), agent.ID, "s1")
	require.NoError(t, err)
	assert.False(t, sess.IsActive)
	assert.Equal(t, 9, sess.MessageCount)
}

func TestIngestSessionsUnknownAgent(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.IngestSessions(context.Background(), "ghost", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestCostsSkipsUnknownAgents(t *testing.T) {
	svc, st, _ := newTestService(t)
	_, err := svc.UpsertAgent(context.Background(), "alpha", "", domain.AgentConfig{})
	require.NoError(t, err)

	stored, err := svc.IngestCosts(context.Background(), []CostInput{
		{AgentName: "alpha", CostDollars: 1, Timestamp: ingestNow},
		{AgentName: "ghost", CostDollars: 2, Timestamp: ingestNow},
	})
	require.NoError(t, err, "an unknown name must not poison the batch")
	assert.Equal(t, 1, stored)

	recs, err := st.Costs.ListRange(context.Background(), "", ingestNow.Add(-time.Hour), ingestNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRecordCostAppliesBudgetsInScope(t *testing.T) {
	svc, st, stops := newTestService(t)
	agent, err := svc.UpsertAgent(context.Background(), "alpha", "", domain.AgentConfig{})
	require.NoError(t, err)
	other, err := svc.UpsertAgent(context.Background(), "bravo", "", domain.AgentConfig{})
	require.NoError(t, err)

	mk := func(id, agentID string, hardStop bool) {
		require.NoError(t, st.Budgets.Create(context.Background(), &domain.Budget{
			ID: id, AgentID: agentID, Name: id, Period: domain.PeriodDaily,
			Limit:    domain.MoneyFromDollars(5),
			ResetAt:  ingestNow.Add(12 * time.Hour),
			HardStop: hardStop, IsActive: true,
		}))
	}
	mk("scoped", agent.ID, true)
	mk("global", "", false)
	mk("foreign", other.ID, false)

	err = svc.RecordCost(context.Background(), agent.ID, CostInput{CostDollars: 6, Timestamp: ingestNow})
	require.NoError(t, err)

	get := func(id string) domain.Money {
		b, err := st.Budgets.Get(context.Background(), id)
		require.NoError(t, err)
		return b.CurrentSpend
	}
	assert.Equal(t, domain.MoneyFromDollars(6), get("scoped"))
	assert.Equal(t, domain.MoneyFromDollars(6), get("global"), "global budgets see every agent's spend")
	assert.Equal(t, domain.Money(0), get("foreign"), "another agent's budget is untouched")

	assert.Equal(t, []string{agent.ID}, stops.stopped, "only the hard-stop breach stops the agent")
}

func TestIngestActivities(t *testing.T) {
	svc, st, _ := newTestService(t)
	agent, err := svc.UpsertAgent(context.Background(), "alpha", "", domain.AgentConfig{})
	require.NoError(t, err)

	stored, err := svc.IngestActivities(context.Background(), []ActivityInput{
		{AgentName: "alpha", Type: "error", Summary: "boom"},
		{AgentName: "ghost", Type: "error", Summary: "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	trail, err := st.Activities.RecentByAgent(context.Background(), agent.ID, 10)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, domain.ActivityError, trail[0].Type)
	assert.Equal(t, ingestNow, trail[0].CreatedAt, "a missing timestamp defaults to ingest time")
}
