package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyFromDollars(t *testing.T) {
	assert.Equal(t, Money(12500), MoneyFromDollars(1.25))
	assert.Equal(t, Money(1), MoneyFromDollars(0.0001))
	assert.Equal(t, Money(0), MoneyFromDollars(0))

	// half-way values round away from zero
	assert.Equal(t, Money(2), MoneyFromDollars(0.00015))
}

func TestMoneyRoundTripPrecision(t *testing.T) {
	for _, d := range []float64{0.0001, 0.0042, 1.9999, 42.1337, 10000.55} {
		got := MoneyFromDollars(d).Dollars()
		assert.InDelta(t, d, got, 0.0001, "round-trip of %v", d)
	}
}

func TestMoneySumHasNoDrift(t *testing.T) {
	// 10k additions of $0.0001 must land exactly on $1.00
	var total Money
	for i := 0; i < 10000; i++ {
		total += MoneyFromDollars(0.0001)
	}
	assert.Equal(t, MoneyFromDollars(1.00), total)
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(MoneyFromDollars(1.25))
	require.NoError(t, err)
	assert.Equal(t, "1.25", string(b))

	var m Money
	require.NoError(t, json.Unmarshal([]byte("0.4219"), &m))
	assert.Equal(t, Money(4219), m)
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "$1.25", MoneyFromDollars(1.25).String())
	assert.Equal(t, "$0.00", Money(0).String())
}
