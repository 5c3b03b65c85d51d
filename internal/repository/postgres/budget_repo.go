package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type BudgetRepo struct {
	pool *pgxpool.Pool
}

const budgetColumns = `id, agent_id, name, period, spend_limit, current_spend, reset_at,
	hard_stop, is_active, created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (*domain.Budget, error) {
	b := &domain.Budget{}
	err := row.Scan(&b.ID, &b.AgentID, &b.Name, &b.Period, &b.Limit, &b.CurrentSpend,
		&b.ResetAt, &b.HardStop, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return b, nil
}

func (r *BudgetRepo) Get(ctx context.Context, id string) (*domain.Budget, error) {
	return scanBudget(r.pool.QueryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id))
}

func (r *BudgetRepo) List(ctx context.Context) ([]domain.Budget, error) {
	return r.list(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY name`)
}

func (r *BudgetRepo) ListActive(ctx context.Context) ([]domain.Budget, error) {
	return r.list(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE is_active ORDER BY name`)
}

func (r *BudgetRepo) list(ctx context.Context, query string) ([]domain.Budget, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *BudgetRepo) Create(ctx context.Context, b *domain.Budget) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO budgets (id, agent_id, name, period, spend_limit, current_spend, reset_at,
			hard_stop, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.AgentID, b.Name, b.Period, b.Limit, b.CurrentSpend, b.ResetAt,
		b.HardStop, b.IsActive, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *BudgetRepo) Update(ctx context.Context, b *domain.Budget) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE budgets
		SET agent_id = $2, name = $3, period = $4, spend_limit = $5, current_spend = $6,
		    reset_at = $7, hard_stop = $8, is_active = $9, updated_at = $10
		WHERE id = $1`,
		b.ID, b.AgentID, b.Name, b.Period, b.Limit, b.CurrentSpend,
		b.ResetAt, b.HardStop, b.IsActive, b.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BudgetRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Mutate serializes concurrent spend updates with a row lock: the record is
// read FOR UPDATE, fn rewrites it in memory, and the row is written back in
// the same transaction.
func (r *BudgetRepo) Mutate(ctx context.Context, id string, fn func(*domain.Budget) error) (*domain.Budget, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := scanBudget(tx.QueryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}

	if err := fn(b); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE budgets
		SET current_spend = $2, reset_at = $3, updated_at = NOW()
		WHERE id = $1`,
		b.ID, b.CurrentSpend, b.ResetAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: commit: %w", err)
	}
	return b, nil
}
