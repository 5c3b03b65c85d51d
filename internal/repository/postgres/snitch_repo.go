package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type SnitchRepo struct {
	pool *pgxpool.Pool
}

func (r *SnitchRepo) Insert(ctx context.Context, e *domain.SnitchEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO snitch_events (id, agent_id, event_type, description, severity, ts)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.AgentID, e.Type, e.Description, e.Severity, e.Timestamp)
	return err
}

func (r *SnitchRepo) ListByAgent(ctx context.Context, agentID string) ([]domain.SnitchEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, agent_id, event_type, description, severity, ts
		FROM snitch_events WHERE agent_id = $1 ORDER BY ts`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SnitchEvent
	for rows.Next() {
		var e domain.SnitchEvent
		if err := rows.Scan(&e.ID, &e.AgentID, &e.Type, &e.Description, &e.Severity, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
