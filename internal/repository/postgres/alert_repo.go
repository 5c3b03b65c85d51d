package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type AlertRepo struct {
	pool *pgxpool.Pool
}

func (r *AlertRepo) Insert(ctx context.Context, a *domain.Alert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO alerts (id, rule_id, agent_id, alert_type, severity, title, message,
			data, channels, acknowledged_at, resolved_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.RuleID, a.AgentID, a.Type, a.Severity, a.Title, a.Message,
		a.Data, a.Channels, a.AcknowledgedAt, a.ResolvedAt, a.CreatedAt)
	return err
}

func (r *AlertRepo) ListRecent(ctx context.Context, limit int) ([]domain.Alert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, rule_id, agent_id, alert_type, severity, title, message,
		       data, channels, acknowledged_at, resolved_at, created_at
		FROM alerts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.RuleID, &a.AgentID, &a.Type, &a.Severity, &a.Title,
			&a.Message, &a.Data, &a.Channels, &a.AcknowledgedAt, &a.ResolvedAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Acknowledge stamps only if the column is still NULL; the first stamp wins.
func (r *AlertRepo) Acknowledge(ctx context.Context, id string, at time.Time) error {
	return r.stamp(ctx, `
		UPDATE alerts SET acknowledged_at = COALESCE(acknowledged_at, $2) WHERE id = $1`, id, at)
}

func (r *AlertRepo) Resolve(ctx context.Context, id string, at time.Time) error {
	return r.stamp(ctx, `
		UPDATE alerts SET resolved_at = COALESCE(resolved_at, $2) WHERE id = $1`, id, at)
}

func (r *AlertRepo) stamp(ctx context.Context, query, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
