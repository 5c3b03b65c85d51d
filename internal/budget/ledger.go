// Package budget tracks rolling spend counters against per-period limits.
// Rollover is lazy: it happens on the next write after the boundary, so
// idle budgets never need a timer of their own.
package budget

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/store"
)

// NextReset returns the next period boundary strictly after from. All
// boundaries are computed in UTC so weekly/monthly resets are unambiguous.
func NextReset(period domain.BudgetPeriod, from time.Time) time.Time {
	t := from.UTC()
	switch period {
	case domain.PeriodHourly:
		return t.Truncate(time.Hour).Add(time.Hour)
	case domain.PeriodWeekly:
		y, m, d := t.Date()
		// next Sunday midnight; a full week out when from is already Sunday
		days := 7 - int(t.Weekday())
		return time.Date(y, m, d+days, 0, 0, 0, 0, time.UTC)
	case domain.PeriodMonthly:
		y, m, _ := t.Date()
		return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		y, m, d := t.Date()
		return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	}
}

type Ledger struct {
	budgets store.BudgetStore
	logger  *zap.Logger
	now     func() time.Time
}

func NewLedger(budgets store.BudgetStore, logger *zap.Logger) *Ledger {
	return &Ledger{
		budgets: budgets,
		logger:  logger.Named("budget-ledger"),
		now:     time.Now,
	}
}

type SpendResult struct {
	Exceeded     bool         `json:"exceeded"`
	CurrentSpend domain.Money `json:"current_spend"`
	Limit        domain.Money `json:"limit"`
	HardStop     bool         `json:"hard_stop"`
	RolledOver   bool         `json:"rolled_over"`
}

// AddSpend applies amount to the budget's counter under the store's
// per-record serialization boundary. If the clock has passed ResetAt the
// period rolled over: the counter restarts at amount (never stale spend +
// amount), ResetAt advances, and the call reports exceeded=false since the
// new period starts clean. Returns domain.ErrNotFound if the budget is gone.
func (l *Ledger) AddSpend(ctx context.Context, budgetID string, amount domain.Money) (SpendResult, error) {
	var res SpendResult
	_, err := l.budgets.Mutate(ctx, budgetID, func(b *domain.Budget) error {
		now := l.now()
		if !now.Before(b.ResetAt) {
			b.CurrentSpend = amount
			b.ResetAt = NextReset(b.Period, now)
			res = SpendResult{
				CurrentSpend: amount,
				Limit:        b.Limit,
				HardStop:     b.HardStop,
				RolledOver:   true,
			}
			return nil
		}
		b.CurrentSpend += amount
		res = SpendResult{
			Exceeded:     b.CurrentSpend >= b.Limit,
			CurrentSpend: b.CurrentSpend,
			Limit:        b.Limit,
			HardStop:     b.HardStop,
		}
		return nil
	})
	if err != nil {
		return SpendResult{}, err
	}
	if res.RolledOver {
		l.logger.Info("budget period rolled over",
			zap.String("budget_id", budgetID),
			zap.String("spend", res.CurrentSpend.String()))
	}
	return res, nil
}
