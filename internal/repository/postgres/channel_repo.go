package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/fleetwatch/internal/domain"
)

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func (r *ChannelRepo) List(ctx context.Context) ([]domain.NotificationChannel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, channel_type, name, config, is_active, created_at, updated_at
		FROM notification_channels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.NotificationChannel
	for rows.Next() {
		var c domain.NotificationChannel
		if err := rows.Scan(&c.ID, &c.Type, &c.Name, &c.Config, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ChannelRepo) Create(ctx context.Context, c *domain.NotificationChannel) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_channels (id, channel_type, name, config, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Type, c.Name, c.Config, c.IsActive, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *ChannelRepo) Update(ctx context.Context, c *domain.NotificationChannel) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_channels
		SET channel_type = $2, name = $3, config = $4, is_active = $5, updated_at = $6
		WHERE id = $1`,
		c.ID, c.Type, c.Name, c.Config, c.IsActive, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ChannelRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notification_channels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
