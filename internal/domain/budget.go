package domain

import "time"

type BudgetPeriod string

const (
	PeriodHourly  BudgetPeriod = "hourly"
	PeriodDaily   BudgetPeriod = "daily"
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
)

// Budget is a rolling spending limit. CurrentSpend accumulates within a
// period; when the clock passes ResetAt the next AddSpend performs the
// rollover lazily, so idle budgets never need a timer.
type Budget struct {
	ID           string       `json:"id"`
	AgentID      string       `json:"agent_id,omitempty"` // empty = global budget
	Name         string       `json:"name"`
	Period       BudgetPeriod `json:"period"`
	Limit        Money        `json:"limit"`
	CurrentSpend Money        `json:"current_spend"`
	ResetAt      time.Time    `json:"reset_at"`
	HardStop     bool         `json:"hard_stop"` // stop the agent when exceeded
	IsActive     bool         `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
