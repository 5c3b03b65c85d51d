package costs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/store/memstore"
)

var testNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func newTestAggregator(t *testing.T, records []domain.CostRecord) *Aggregator {
	t.Helper()
	st := memstore.New().Store()
	for i := range records {
		require.NoError(t, st.Costs.Insert(context.Background(), &records[i]))
	}
	return &Aggregator{costs: st.Costs, now: func() time.Time { return testNow }}
}

func rec(agentID string, at time.Time, dollars float64, in, out int64) domain.CostRecord {
	return domain.CostRecord{
		AgentID:      agentID,
		Timestamp:    at,
		Cost:         domain.MoneyFromDollars(dollars),
		InputTokens:  in,
		OutputTokens: out,
	}
}

func TestSumCostsRangeIsHalfOpen(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	agg := newTestAggregator(t, []domain.CostRecord{
		rec("a1", start, 1, 10, 20),                    // included: start is inclusive
		rec("a1", start.Add(30*time.Minute), 2, 5, 5),  // included
		rec("a1", end, 4, 1, 1),                        // excluded: end is exclusive
		rec("a1", start.Add(-time.Nanosecond), 8, 0, 0), // excluded
	})

	sum, err := agg.SumCosts(context.Background(), "a1", start, end)
	require.NoError(t, err)
	assert.Equal(t, domain.MoneyFromDollars(3), sum.Cost)
	assert.Equal(t, int64(15), sum.InputTokens)
	assert.Equal(t, int64(25), sum.OutputTokens)
	assert.Equal(t, 2, sum.Requests)
}

func TestSumCostsEmptyAgentScansFleet(t *testing.T) {
	at := testNow.Add(-time.Hour)
	agg := newTestAggregator(t, []domain.CostRecord{
		rec("a1", at, 1, 0, 0),
		rec("a2", at, 2, 0, 0),
	})

	sum, err := agg.SumCosts(context.Background(), "", at.Add(-time.Minute), testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.MoneyFromDollars(3), sum.Cost)
}

func TestSumCostsNoRecordsIsZero(t *testing.T) {
	agg := newTestAggregator(t, nil)

	sum, err := agg.SumCosts(context.Background(), "a1", testNow.Add(-time.Hour), testNow)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestBucketHourly(t *testing.T) {
	h14 := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	h12 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	agg := newTestAggregator(t, []domain.CostRecord{
		rec("a1", h14.Add(5*time.Minute), 1, 100, 0),
		rec("a1", h14.Add(59*time.Minute), 2, 0, 50),
		rec("a1", h12.Add(1*time.Minute), 4, 10, 10),
		// hour 13 has no records: no bucket
	})

	buckets, err := agg.BucketHourly(context.Background(), "a1", 24)
	require.NoError(t, err)
	require.Len(t, buckets, 2, "empty hours produce no bucket")

	assert.True(t, buckets[0].Start.Before(buckets[1].Start), "buckets are ascending")
	assert.Equal(t, h12, buckets[0].Start)
	assert.Equal(t, h14, buckets[1].Start)

	assert.Equal(t, domain.MoneyFromDollars(3), buckets[1].Cost)
	assert.Equal(t, int64(150), buckets[1].Tokens)
	assert.Equal(t, 2, buckets[1].Requests)
}

func TestBucketTotalsMatchRangeSum(t *testing.T) {
	// Cents split across hours must re-add to the exact range total.
	records := []domain.CostRecord{
		rec("a1", testNow.Add(-3*time.Hour), 0.0001, 1, 0),
		rec("a1", testNow.Add(-2*time.Hour), 0.3333, 1, 0),
		rec("a1", testNow.Add(-1*time.Hour), 0.6667, 1, 0),
		rec("a1", testNow.Add(-10*time.Minute), 1.9999, 1, 0),
	}
	agg := newTestAggregator(t, records)

	buckets, err := agg.BucketHourly(context.Background(), "a1", 24)
	require.NoError(t, err)
	var bucketed domain.Money
	for _, b := range buckets {
		bucketed += b.Cost
	}

	sum, err := agg.SumCosts(context.Background(), "a1", testNow.Add(-24*time.Hour), testNow.Add(time.Nanosecond))
	require.NoError(t, err)
	assert.Equal(t, sum.Cost, bucketed)
}

func TestOverview(t *testing.T) {
	agg := newTestAggregator(t, []domain.CostRecord{
		rec("a1", testNow.Add(-30*time.Minute), 1, 0, 0), // hour, today, week, month
		rec("a1", testNow.Add(-5*time.Hour), 2, 0, 0),    // today, week, month
		rec("a1", testNow.Add(-3*24*time.Hour), 4, 0, 0), // week, month
		rec("a1", time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC), 8, 0, 0), // month only (older than 7d)
	})

	o, err := agg.Overview(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.MoneyFromDollars(1), o.LastHour.Cost)
	assert.Equal(t, domain.MoneyFromDollars(3), o.Today.Cost)
	assert.Equal(t, domain.MoneyFromDollars(7), o.Week.Cost)
	assert.Equal(t, domain.MoneyFromDollars(15), o.Month.Cost)
}
