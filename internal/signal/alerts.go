package signal

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/infra"
)

// AlertPublisher hands fired alerts to the external notification sender via
// Redis pub/sub. The alert already carries its target channel identifiers;
// delivery (and its retries) is the sender's problem.
type AlertPublisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewAlertPublisher(rdb *redis.Client, logger *zap.Logger) *AlertPublisher {
	return &AlertPublisher{rdb: rdb, logger: logger.Named("alert-publisher")}
}

// AlertFired implements rules.AlertSink. A publish failure never fails the
// evaluation pass: the alert row is already committed and the sender can
// catch up from the store.
func (p *AlertPublisher) AlertFired(ctx context.Context, a *domain.Alert) {
	payload, err := json.Marshal(a)
	if err != nil {
		p.logger.Error("alert marshal failed", zap.String("alert_id", a.ID), zap.Error(err))
		return
	}
	if err := p.rdb.Publish(ctx, infra.RedisChanAlerts, payload).Err(); err != nil {
		p.logger.Warn("alert publish failed",
			zap.String("alert_id", a.ID), zap.Error(err))
	}
}
