package score

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/store/memstore"
)

func events(types ...domain.SnitchType) []domain.SnitchEvent {
	out := make([]domain.SnitchEvent, len(types))
	for i, t := range types {
		out[i] = domain.SnitchEvent{Type: t}
	}
	return out
}

func TestComputeZeroEvents(t *testing.T) {
	card := Compute(nil)
	assert.Equal(t, 0, card.Score)
	assert.Equal(t, "Ride or Die", card.Label)
	assert.Equal(t, "🤐", card.Emoji)
	assert.Equal(t, 0, card.TotalEvents)
}

func TestComputeKnownValues(t *testing.T) {
	// one tattled_on_user: 5/1*10 + 1*0.5 = 50.5 -> 51
	card := Compute(events(domain.SnitchTattledOnUser))
	assert.Equal(t, 51, card.Score)
	assert.Equal(t, "Hall Monitor", card.Label)

	// one permission_ask: 0.5*10 + 0.5 = 5.5 -> 6
	card = Compute(events(domain.SnitchPermissionAsk))
	assert.Equal(t, 6, card.Score)
	assert.Equal(t, "Ride or Die", card.Label)

	// unknown type weighs 1: 1*10 + 0.5 = 10.5 -> 11
	card = Compute(events(domain.SnitchType("mystery")))
	assert.Equal(t, 11, card.Score)
	assert.Equal(t, "Cool About It", card.Label)
}

func TestComputeCapsAtHundred(t *testing.T) {
	many := make([]domain.SnitchEvent, 300)
	for i := range many {
		many[i] = domain.SnitchEvent{Type: domain.SnitchTattledOnUser}
	}
	card := Compute(many)
	assert.Equal(t, 100, card.Score)
	assert.Equal(t, "Internal Affairs", card.Label)
	assert.Equal(t, "🕵️", card.Emoji)
}

func TestComputeMonotonicInHeavyEvents(t *testing.T) {
	base := events(domain.SnitchAlertFired, domain.SnitchAlertFired)
	before := Compute(base).Score
	after := Compute(append(base, domain.SnitchEvent{Type: domain.SnitchTattledOnUser})).Score
	assert.GreaterOrEqual(t, after, before,
		"adding a max-weight event never lowers the score")
}

func TestComputeBreakdown(t *testing.T) {
	card := Compute(events(
		domain.SnitchSafetyRefusal,
		domain.SnitchSafetyRefusal,
		domain.SnitchContentFlag,
	))
	assert.Equal(t, 2, card.Breakdown[domain.SnitchSafetyRefusal])
	assert.Equal(t, 1, card.Breakdown[domain.SnitchContentFlag])
	assert.Equal(t, 3, card.TotalEvents)
}

func TestLabelBoundaries(t *testing.T) {
	cases := []struct {
		score int
		label string
	}{
		{0, "Ride or Die"},
		{9, "Ride or Die"},
		{10, "Cool About It"},
		{24, "Cool About It"},
		{25, "Concerned Citizen"},
		{49, "Concerned Citizen"},
		{50, "Hall Monitor"},
		{74, "Hall Monitor"},
		{75, "Full Narc"},
		{89, "Full Narc"},
		{90, "Internal Affairs"},
		{100, "Internal Affairs"},
	}
	for _, tc := range cases {
		label, _ := labelFor(tc.score)
		assert.Equal(t, tc.label, label, "score %d", tc.score)
	}
}

func newTestEngine(t *testing.T) (*Engine, *memstore.Memstore) {
	t.Helper()
	mem := memstore.New()
	st := mem.Store()
	e := NewEngine(st.Snitches, st.Agents, zap.NewNop())
	e.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return e, mem
}

func seedAgent(t *testing.T, mem *memstore.Memstore, id, name string) {
	t.Helper()
	require.NoError(t, mem.Store().Agents.Create(context.Background(),
		&domain.Agent{ID: id, Name: name, Status: domain.AgentOnline}))
}

func TestRecordRejectsUnknownAgent(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Record(context.Background(), "ghost",
		domain.SnitchSafetyRefusal, "refused", domain.SeveritySnitch)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAgentScoreIncludesRecentEvents(t *testing.T) {
	e, mem := newTestEngine(t)
	seedAgent(t, mem, "a1", "alpha")

	for i := 0; i < 7; i++ {
		_, err := e.Record(context.Background(), "a1",
			domain.SnitchPermissionAsk, "asked again", domain.SeveritySnitch)
		require.NoError(t, err)
	}

	card, err := e.AgentScore(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 7, card.TotalEvents)
	assert.Len(t, card.Recent, 5, "recent list is capped at five")
}

func TestLeaderboardOrdering(t *testing.T) {
	e, mem := newTestEngine(t)
	seedAgent(t, mem, "a1", "alpha")
	seedAgent(t, mem, "a2", "bravo")
	seedAgent(t, mem, "a3", "charlie")

	// bravo tattles, charlie only asks permission, alpha stays quiet
	_, err := e.Record(context.Background(), "a2",
		domain.SnitchTattledOnUser, "told the boss", domain.SeverityNarc)
	require.NoError(t, err)
	_, err = e.Record(context.Background(), "a3",
		domain.SnitchPermissionAsk, "may I?", domain.SeveritySnitch)
	require.NoError(t, err)

	entries, err := e.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "bravo", entries[0].AgentName)
	assert.Equal(t, "charlie", entries[1].AgentName)
	assert.Equal(t, "alpha", entries[2].AgentName)
}

func TestLeaderboardTiesKeepNameOrder(t *testing.T) {
	e, mem := newTestEngine(t)
	seedAgent(t, mem, "a1", "zulu")
	seedAgent(t, mem, "a2", "alpha")

	entries, err := e.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// both score 0; the stable sort keeps the store's name ordering
	assert.Equal(t, "alpha", entries[0].AgentName)
	assert.Equal(t, "zulu", entries[1].AgentName)
}
