// Package postgres implements the store interfaces on pgx. One repo type per
// entity, all sharing a single pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/infra"
	"github.com/xela07ax/fleetwatch/internal/store"
)

func NewPool(ctx context.Context, cfg infra.DatabaseConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// NewStore binds every repo to the shared pool.
func NewStore(pool *pgxpool.Pool) *store.Store {
	return &store.Store{
		Agents:     &AgentRepo{pool: pool},
		Sessions:   &SessionRepo{pool: pool},
		Costs:      &CostRepo{pool: pool},
		Budgets:    &BudgetRepo{pool: pool},
		Rules:      &RuleRepo{pool: pool},
		Alerts:     &AlertRepo{pool: pool},
		Activities: &ActivityRepo{pool: pool},
		Snitches:   &SnitchRepo{pool: pool},
		Channels:   &ChannelRepo{pool: pool},
		Operators:  &OperatorRepo{pool: pool},
	}
}

// mapErr translates driver sentinels into the domain error taxonomy.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
