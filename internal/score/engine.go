// Package score computes the composite behavioral score: how often an agent
// escalates, refuses or reports. Higher score = your agent is a hall
// monitor; lower = ride or die.
package score

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/store"
)

// weights rank event types by how hard the agent tattled. Unknown types
// count as 1.
var weights = map[domain.SnitchType]float64{
	domain.SnitchAlertFired:       1,
	domain.SnitchSafetyRefusal:    3,
	domain.SnitchContentFlag:      2,
	domain.SnitchBudgetWarning:    1,
	domain.SnitchPermissionAsk:    0.5,
	domain.SnitchProactiveWarning: 1.5,
	domain.SnitchComplianceReport: 2,
	domain.SnitchTattledOnUser:    5,
}

func Weight(t domain.SnitchType) float64 {
	if w, ok := weights[t]; ok {
		return w
	}
	return 1
}

type Scorecard struct {
	Score       int                       `json:"score"`
	Label       string                    `json:"label"`
	Emoji       string                    `json:"emoji"`
	TotalEvents int                       `json:"total_events"`
	Breakdown   map[domain.SnitchType]int `json:"breakdown"`
	Recent      []domain.SnitchEvent      `json:"recent_snitches,omitempty"`
}

// Compute normalizes an event stream to a 0–100 score. The formula rewards
// both severity mix (average weight) and sheer volume (linear term), capped
// at 100. Zero events is score 0.
func Compute(events []domain.SnitchEvent) Scorecard {
	card := Scorecard{Breakdown: make(map[domain.SnitchType]int)}
	if len(events) == 0 {
		card.Label, card.Emoji = labelFor(0)
		return card
	}

	var totalWeight float64
	for _, e := range events {
		totalWeight += Weight(e.Type)
		card.Breakdown[e.Type]++
	}

	n := float64(len(events))
	raw := math.Min(100, totalWeight/n*10+n*0.5)
	card.Score = int(math.Round(raw))
	card.TotalEvents = len(events)
	card.Label, card.Emoji = labelFor(card.Score)
	return card
}

func labelFor(score int) (label, emoji string) {
	switch {
	case score < 10:
		return "Ride or Die", "🤐"
	case score < 25:
		return "Cool About It", "😎"
	case score < 50:
		return "Concerned Citizen", "🧐"
	case score < 75:
		return "Hall Monitor", "👮"
	case score < 90:
		return "Full Narc", "🚨"
	default:
		return "Internal Affairs", "🕵️"
	}
}

type Engine struct {
	snitches store.SnitchStore
	agents   store.AgentStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(snitches store.SnitchStore, agents store.AgentStore, logger *zap.Logger) *Engine {
	return &Engine{
		snitches: snitches,
		agents:   agents,
		logger:   logger.Named("score"),
		now:      time.Now,
	}
}

// Record appends one behavioral event. Pure insert: no evaluation happens
// here.
func (e *Engine) Record(ctx context.Context, agentID string, typ domain.SnitchType, description string, severity domain.SnitchSeverity) (*domain.SnitchEvent, error) {
	if _, err := e.agents.Get(ctx, agentID); err != nil {
		return nil, fmt.Errorf("score: agent %s: %w", agentID, err)
	}
	ev := &domain.SnitchEvent{
		AgentID:     agentID,
		Type:        typ,
		Description: description,
		Severity:    severity,
		Timestamp:   e.now(),
	}
	if err := e.snitches.Insert(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// AgentScore recomputes the scorecard from the full event stream. Cheap
// enough that no caching is needed.
func (e *Engine) AgentScore(ctx context.Context, agentID string) (Scorecard, error) {
	events, err := e.snitches.ListByAgent(ctx, agentID)
	if err != nil {
		return Scorecard{}, err
	}
	card := Compute(events)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if len(events) > 5 {
		events = events[:5]
	}
	card.Recent = events
	return card, nil
}

type LeaderboardEntry struct {
	AgentID     string `json:"agent_id"`
	AgentName   string `json:"agent_name"`
	Score       int    `json:"score"`
	TotalEvents int    `json:"total_snitches"`
}

// Leaderboard scores every agent and sorts descending. Ties keep the input
// order (agents sorted by name).
func (e *Engine) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	agents, err := e.agents.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(agents))
	for _, a := range agents {
		events, err := e.snitches.ListByAgent(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		card := Compute(events)
		entries = append(entries, LeaderboardEntry{
			AgentID:     a.ID,
			AgentName:   a.Name,
			Score:       card.Score,
			TotalEvents: len(events),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	return entries, nil
}
