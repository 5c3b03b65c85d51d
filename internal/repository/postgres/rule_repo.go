package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type RuleRepo struct {
	pool *pgxpool.Pool
}

const ruleColumns = `id, name, agent_id, rule_type, config, channels, is_active,
	cooldown_minutes, last_triggered, created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (*domain.AlertRule, error) {
	r := &domain.AlertRule{}
	err := row.Scan(&r.ID, &r.Name, &r.AgentID, &r.Type, &r.Config, &r.Channels,
		&r.IsActive, &r.CooldownMinutes, &r.LastTriggered, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return r, nil
}

func (r *RuleRepo) Get(ctx context.Context, id string) (*domain.AlertRule, error) {
	return scanRule(r.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM alert_rules WHERE id = $1`, id))
}

func (r *RuleRepo) List(ctx context.Context) ([]domain.AlertRule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM alert_rules ORDER BY name`)
}

func (r *RuleRepo) ListActive(ctx context.Context) ([]domain.AlertRule, error) {
	return r.list(ctx, `SELECT `+ruleColumns+` FROM alert_rules WHERE is_active ORDER BY name`)
}

func (r *RuleRepo) list(ctx context.Context, query string) ([]domain.AlertRule, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AlertRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

func (r *RuleRepo) Create(ctx context.Context, rule *domain.AlertRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO alert_rules (id, name, agent_id, rule_type, config, channels, is_active,
			cooldown_minutes, last_triggered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rule.ID, rule.Name, rule.AgentID, rule.Type, rule.Config, rule.Channels,
		rule.IsActive, rule.CooldownMinutes, rule.LastTriggered, rule.CreatedAt, rule.UpdatedAt)
	return err
}

func (r *RuleRepo) Update(ctx context.Context, rule *domain.AlertRule) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE alert_rules
		SET name = $2, agent_id = $3, rule_type = $4, config = $5, channels = $6,
		    is_active = $7, cooldown_minutes = $8, updated_at = $9
		WHERE id = $1`,
		rule.ID, rule.Name, rule.AgentID, rule.Type, rule.Config, rule.Channels,
		rule.IsActive, rule.CooldownMinutes, rule.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RuleRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RuleRepo) SetLastTriggered(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE alert_rules SET last_triggered = $2, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
