package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type CostRepo struct {
	pool *pgxpool.Pool
}

func (r *CostRepo) Insert(ctx context.Context, c *domain.CostRecord) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cost_records (id, agent_id, session_key, ts, provider, model,
			input_tokens, output_tokens, cache_read_tokens, cache_write_tokens, cost, period)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.AgentID, c.SessionKey, c.Timestamp, c.Provider, c.Model,
		c.InputTokens, c.OutputTokens, c.CacheReadTokens, c.CacheWriteTokens, c.Cost, c.Period)
	return err
}

// ListRange scans [start, end). The empty agentID means the whole fleet.
func (r *CostRepo) ListRange(ctx context.Context, agentID string, start, end time.Time) ([]domain.CostRecord, error) {
	query := `
		SELECT id, agent_id, session_key, ts, provider, model,
		       input_tokens, output_tokens, cache_read_tokens, cache_write_tokens, cost, period
		FROM cost_records
		WHERE ts >= $1 AND ts < $2`
	args := []any{start, end}
	if agentID != "" {
		query += ` AND agent_id = $3`
		args = append(args, agentID)
	}
	query += ` ORDER BY ts`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CostRecord
	for rows.Next() {
		var c domain.CostRecord
		if err := rows.Scan(&c.ID, &c.AgentID, &c.SessionKey, &c.Timestamp, &c.Provider, &c.Model,
			&c.InputTokens, &c.OutputTokens, &c.CacheReadTokens, &c.CacheWriteTokens, &c.Cost, &c.Period); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
