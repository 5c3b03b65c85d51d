// Package costs derives cost and token aggregates from the raw cost record
// stream. Everything here is a pure read over already-fetched data, safe
// for unlimited concurrent use.
package costs

import (
	"context"
	"sort"
	"time"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/store"
)

type Aggregator struct {
	costs store.CostStore
	now   func() time.Time
}

func NewAggregator(costs store.CostStore) *Aggregator {
	return &Aggregator{costs: costs, now: time.Now}
}

type Summary struct {
	Cost         domain.Money `json:"cost"`
	InputTokens  int64        `json:"input_tokens"`
	OutputTokens int64        `json:"output_tokens"`
	Requests     int          `json:"requests"`
}

// SumCosts sums all records with timestamp in [start, end). An empty agentID
// sums across the whole fleet. No matching records yields a zero Summary,
// never an error.
func (a *Aggregator) SumCosts(ctx context.Context, agentID string, start, end time.Time) (Summary, error) {
	records, err := a.costs.ListRange(ctx, agentID, start, end)
	if err != nil {
		return Summary{}, err
	}
	return sumRecords(records), nil
}

func sumRecords(records []domain.CostRecord) Summary {
	var s Summary
	for _, r := range records {
		s.Cost += r.Cost
		s.InputTokens += r.InputTokens
		s.OutputTokens += r.OutputTokens
		s.Requests++
	}
	return s
}

type Bucket struct {
	Start    time.Time    `json:"timestamp"`
	Cost     domain.Money `json:"cost"`
	Tokens   int64        `json:"tokens"`
	Requests int          `json:"requests"`
}

// BucketHourly assigns every record of the trailing window to its hour
// bucket (floor of the timestamp) and returns buckets ascending by hour.
// Hours with no records produce no bucket; callers must handle gaps.
func (a *Aggregator) BucketHourly(ctx context.Context, agentID string, windowHours int) ([]Bucket, error) {
	now := a.now()
	records, err := a.costs.ListRange(ctx, agentID, now.Add(-time.Duration(windowHours)*time.Hour), now.Add(time.Nanosecond))
	if err != nil {
		return nil, err
	}

	byHour := make(map[int64]*Bucket)
	for _, r := range records {
		hour := r.Timestamp.Truncate(time.Hour)
		key := hour.UnixNano()
		b, ok := byHour[key]
		if !ok {
			b = &Bucket{Start: hour}
			byHour[key] = b
		}
		b.Cost += r.Cost
		b.Tokens += r.InputTokens + r.OutputTokens
		b.Requests++
	}

	out := make([]Bucket, 0, len(byHour))
	for _, b := range byHour {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Overview is the console's cost summary: today, trailing week, month to
// date and the trailing hour.
type Overview struct {
	Today    Summary `json:"today"`
	Week     Summary `json:"week"`
	Month    Summary `json:"month"`
	LastHour Summary `json:"last_hour"`
}

func (a *Aggregator) Overview(ctx context.Context, agentID string) (Overview, error) {
	now := a.now().UTC()
	end := now.Add(time.Nanosecond)

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	start := monthStart
	if weekStart.Before(start) {
		start = weekStart
	}

	records, err := a.costs.ListRange(ctx, agentID, start, end)
	if err != nil {
		return Overview{}, err
	}

	var o Overview
	o.Month = sumSince(records, monthStart)
	o.Week = sumSince(records, weekStart)
	o.Today = sumSince(records, dayStart)
	o.LastHour = sumSince(records, now.Add(-time.Hour))
	return o, nil
}

func sumSince(records []domain.CostRecord, cutoff time.Time) Summary {
	var s Summary
	for _, r := range records {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		s.Cost += r.Cost
		s.InputTokens += r.InputTokens
		s.OutputTokens += r.OutputTokens
		s.Requests++
	}
	return s
}
