// Package scheduler drives periodic rule evaluation. Passes never overlap:
// a single goroutine owns the loop and each tick waits for the previous pass.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/rules"
)

type Scheduler struct {
	evaluator *rules.Evaluator
	interval  time.Duration
	logger    *zap.Logger
}

func New(evaluator *rules.Evaluator, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		evaluator: evaluator,
		interval:  interval,
		logger:    logger.Named("scheduler"),
	}
}

// Run evaluates on every tick until the context ends. An evaluation error
// abandons the current pass only; the next tick starts fresh.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("evaluation scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("evaluation scheduler stopped")
			return
		case <-ticker.C:
			res, err := s.evaluator.Evaluate(ctx)
			if err != nil {
				s.logger.Error("evaluation pass failed",
					zap.Int("fired_before_failure", res.Fired),
					zap.Error(err))
			}
		}
	}
}
