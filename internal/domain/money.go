package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Money is a fixed-point currency amount in 1e-4 dollar units. Spend
// accumulation stays exact integer arithmetic; floats exist only at the
// JSON/API edges.
type Money int64

// MoneyFromDollars rounds to the nearest 1e-4 dollar.
func MoneyFromDollars(d float64) Money {
	return Money(math.Round(d * 10000))
}

func (m Money) Dollars() float64 { return float64(m) / 10000 }

func (m Money) String() string { return fmt.Sprintf("$%.2f", m.Dollars()) }

// MarshalJSON emits a plain dollar amount so API consumers never see the
// internal fixed-point representation.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Dollars())
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var d float64
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	*m = MoneyFromDollars(d)
	return nil
}
