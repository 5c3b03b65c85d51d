package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func (r *ActivityRepo) Insert(ctx context.Context, a *domain.Activity) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activities (id, agent_id, activity_type, summary, details, session_key, channel, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.AgentID, a.Type, a.Summary, a.Details, a.SessionKey, a.Channel, a.CreatedAt)
	return err
}

func (r *ActivityRepo) RecentByAgent(ctx context.Context, agentID string, limit int) ([]domain.Activity, error) {
	return r.query(ctx, `
		SELECT id, agent_id, activity_type, summary, details, session_key, channel, created_at
		FROM activities WHERE agent_id = $1 ORDER BY created_at DESC LIMIT $2`, agentID, limit)
}

func (r *ActivityRepo) Recent(ctx context.Context, limit int) ([]domain.Activity, error) {
	return r.query(ctx, `
		SELECT id, agent_id, activity_type, summary, details, session_key, channel, created_at
		FROM activities ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *ActivityRepo) query(ctx context.Context, query string, args ...any) ([]domain.Activity, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Activity
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.AgentID, &a.Type, &a.Summary, &a.Details,
			&a.SessionKey, &a.Channel, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
