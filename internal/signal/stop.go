// Package signal carries cross-process control events over Redis: hard-stop
// toggles for agents whose budget ran out, and fired alerts for the external
// notification sender.
package signal

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/infra"
)

// StopController tracks which agents are under a hard-stop. State lives in a
// Redis set (survives restarts, shared across instances) mirrored into a
// local map for cheap reads on the hot path.
type StopController struct {
	mu      sync.RWMutex
	stopped map[string]struct{}
	rdb     *redis.Client
	logger  *zap.Logger
	metrics *infra.Metrics
}

func NewStopController(rdb *redis.Client, metrics *infra.Metrics, logger *zap.Logger) *StopController {
	return &StopController{
		stopped: make(map[string]struct{}),
		rdb:     rdb,
		logger:  logger.Named("stop-controller"),
		metrics: metrics,
	}
}

// Init loads the current stop set at startup.
func (c *StopController) Init(ctx context.Context) error {
	ids, err := c.rdb.SMembers(ctx, infra.RedisKeyStoppedAgents).Result()
	if err != nil {
		return err
	}
	c.mu.Lock()
	for _, id := range ids {
		c.stopped[id] = struct{}{}
	}
	c.metrics.StoppedAgents.Set(float64(len(c.stopped)))
	c.mu.Unlock()
	return nil
}

func (c *StopController) IsStopped(agentID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.stopped[agentID]
	return ok
}

// Stop marks the agent stopped and broadcasts the toggle. Called when a
// hard-stop budget is exceeded, and by the console.
func (c *StopController) Stop(ctx context.Context, agentID string) error {
	return c.toggle(ctx, agentID, true)
}

// Resume lifts the hard-stop (console action after the operator raises the
// budget or the period rolls over).
func (c *StopController) Resume(ctx context.Context, agentID string) error {
	return c.toggle(ctx, agentID, false)
}

func (c *StopController) toggle(ctx context.Context, agentID string, stop bool) error {
	c.apply(agentID, stop)

	var err error
	if stop {
		err = c.rdb.SAdd(ctx, infra.RedisKeyStoppedAgents, agentID).Err()
	} else {
		err = c.rdb.SRem(ctx, infra.RedisKeyStoppedAgents, agentID).Err()
	}
	if err != nil {
		return err
	}

	payload := agentID + ":false"
	if stop {
		payload = agentID + ":true"
	}
	if err := c.rdb.Publish(ctx, infra.RedisChanStopSignal, payload).Err(); err != nil {
		// Other instances resync on reconnect; the set is the source of truth.
		c.logger.Warn("stop signal delivery failed",
			zap.String("agent_id", agentID), zap.Error(err))
	}

	c.logger.Info("agent stop state changed",
		zap.String("agent_id", agentID), zap.Bool("stopped", stop))
	return nil
}

func (c *StopController) apply(agentID string, stop bool) {
	c.mu.Lock()
	if stop {
		c.stopped[agentID] = struct{}{}
	} else {
		delete(c.stopped, agentID)
	}
	c.metrics.StoppedAgents.Set(float64(len(c.stopped)))
	c.mu.Unlock()
}

// StartListener keeps the local mirror in sync with toggles published by
// other instances. Reconnects forever until the context ends.
func (c *StopController) StartListener(ctx context.Context) {
	ListenResilient(ctx, c.rdb, c.logger, infra.RedisChanStopSignal,
		func() error { return c.Init(ctx) },
		func(agentID string, stopped bool) { c.apply(agentID, stopped) },
	)
}

// ListenResilient is a survivable subscription loop: it resubscribes after
// failures, resyncs via onReconnect on every successful connect, and parses
// "id:bool" payloads.
func ListenResilient(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onReconnect func() error,
	onMessage func(id string, state bool),
) {
	for {
		if ctx.Err() != nil {
			return
		}

		pubsub := rdb.Subscribe(ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			pubsub.Close()
			time.Sleep(5 * time.Second)
			continue
		}

		if err := onReconnect(); err != nil {
			logger.Error("sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // channel closed, go reconnect
				}
				id, state, valid := parseSignal(msg.Payload)
				if !valid {
					logger.Error("invalid signal format", zap.String("payload", msg.Payload))
					continue
				}
				onMessage(id, state)
			}
		}

		pubsub.Close()
		time.Sleep(time.Second)
	}
}

func parseSignal(payload string) (id string, state, valid bool) {
	for i := len(payload) - 1; i >= 0; i-- {
		if payload[i] == ':' {
			value := payload[i+1:]
			return payload[:i], value == "true" || value == "on", true
		}
	}
	return "", false, false
}
