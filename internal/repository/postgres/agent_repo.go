package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type AgentRepo struct {
	pool *pgxpool.Pool
}

const agentColumns = `id, name, gateway_url, status, last_heartbeat, last_seen, config, created_at, updated_at`

func scanAgent(row interface{ Scan(...any) error }) (*domain.Agent, error) {
	a := &domain.Agent{}
	err := row.Scan(&a.ID, &a.Name, &a.GatewayURL, &a.Status,
		&a.LastHeartbeat, &a.LastSeen, &a.Config, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func (r *AgentRepo) Get(ctx context.Context, id string) (*domain.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
}

func (r *AgentRepo) GetByName(ctx context.Context, name string) (*domain.Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE name = $1`, name))
}

func (r *AgentRepo) List(ctx context.Context) ([]domain.Agent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AgentRepo) Create(ctx context.Context, a *domain.Agent) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO agents (id, name, gateway_url, status, last_heartbeat, last_seen, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Name, a.GatewayURL, a.Status, a.LastHeartbeat, a.LastSeen, a.Config, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *AgentRepo) Update(ctx context.Context, a *domain.Agent) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents
		SET name = $2, gateway_url = $3, status = $4, last_heartbeat = $5,
		    last_seen = $6, config = $7, updated_at = $8
		WHERE id = $1`,
		a.ID, a.Name, a.GatewayURL, a.Status, a.LastHeartbeat, a.LastSeen, a.Config, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AgentRepo) SetStatus(ctx context.Context, id string, status domain.AgentStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE agents SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AgentRepo) Heartbeat(ctx context.Context, id string, status domain.AgentStatus, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents
		SET status = $2, last_heartbeat = $3, last_seen = $3, updated_at = $3
		WHERE id = $1`, id, status, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
