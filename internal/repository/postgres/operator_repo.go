package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type OperatorRepo struct {
	pool *pgxpool.Pool
}

func (r *OperatorRepo) GetByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	op := &domain.Operator{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, username, password_hash, role, scopes, created_at, updated_at
		FROM operators WHERE username = $1`, username).Scan(
		&op.ID, &op.Email, &op.Username, &op.PasswordHash, &op.Role, &op.Scopes,
		&op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return op, nil
}
