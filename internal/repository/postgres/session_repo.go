package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

const sessionColumns = `id, agent_id, session_key, kind, display_name, channel, started_at,
	last_activity, total_tokens, input_tokens, output_tokens, estimated_cost, message_count, is_active`

func scanSession(row interface{ Scan(...any) error }) (*domain.Session, error) {
	s := &domain.Session{}
	err := row.Scan(&s.ID, &s.AgentID, &s.SessionKey, &s.Kind, &s.DisplayName, &s.Channel,
		&s.StartedAt, &s.LastActivity, &s.TotalTokens, &s.InputTokens, &s.OutputTokens,
		&s.EstimatedCost, &s.MessageCount, &s.IsActive)
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

func (r *SessionRepo) ListByAgent(ctx context.Context, agentID string) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE agent_id = $1 ORDER BY last_activity DESC`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SessionRepo) GetByKey(ctx context.Context, agentID, sessionKey string) (*domain.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE agent_id = $1 AND session_key = $2`,
		agentID, sessionKey))
}

func (r *SessionRepo) Create(ctx context.Context, s *domain.Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, agent_id, session_key, kind, display_name, channel, started_at,
			last_activity, total_tokens, input_tokens, output_tokens, estimated_cost, message_count, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.AgentID, s.SessionKey, s.Kind, s.DisplayName, s.Channel, s.StartedAt,
		s.LastActivity, s.TotalTokens, s.InputTokens, s.OutputTokens, s.EstimatedCost,
		s.MessageCount, s.IsActive)
	return err
}

func (r *SessionRepo) Update(ctx context.Context, s *domain.Session) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET kind = $2, display_name = $3, channel = $4, last_activity = $5, total_tokens = $6,
		    input_tokens = $7, output_tokens = $8, estimated_cost = $9, message_count = $10, is_active = $11
		WHERE id = $1`,
		s.ID, s.Kind, s.DisplayName, s.Channel, s.LastActivity, s.TotalTokens,
		s.InputTokens, s.OutputTokens, s.EstimatedCost, s.MessageCount, s.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
