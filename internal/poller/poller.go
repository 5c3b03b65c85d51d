package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/infra"
	"github.com/xela07ax/fleetwatch/internal/ingest"
	"github.com/xela07ax/fleetwatch/internal/store"
)

// SessionFetcher is what the poller needs from the HTTP client. Tests swap
// in a stub.
type SessionFetcher interface {
	FetchSessions(ctx context.Context, gatewayURL string) ([]ingest.SessionSnapshot, error)
}

// StopChecker reports which agents are hard-stopped; their gateways are not
// polled.
type StopChecker interface {
	IsStopped(agentID string) bool
}

type Poller struct {
	agents   store.AgentStore
	ingest   *ingest.Service
	client   SessionFetcher
	stops    StopChecker // optional
	metrics  *infra.Metrics
	logger   *zap.Logger
	interval time.Duration
}

func New(agents store.AgentStore, svc *ingest.Service, client SessionFetcher, stops StopChecker, metrics *infra.Metrics, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		agents:   agents,
		ingest:   svc,
		client:   client,
		stops:    stops,
		metrics:  metrics,
		logger:   logger.Named("poller"),
		interval: interval,
	}
}

// Run polls until the context ends. One pass at a time; a slow fleet delays
// the next tick rather than piling up concurrent passes.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("poller started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) {
	agents, err := p.agents.List(ctx)
	if err != nil {
		p.logger.Error("listing agents failed", zap.Error(err))
		return
	}

	for _, a := range agents {
		if a.GatewayURL == "" {
			continue
		}
		if p.stops != nil && p.stops.IsStopped(a.ID) {
			continue
		}
		p.pollOne(ctx, &a)
	}
}

// pollOne fetches one gateway. A successful fetch doubles as a heartbeat;
// failures only count in metrics, offline detection stays with the rules.
func (p *Poller) pollOne(ctx context.Context, a *domain.Agent) {
	snapshots, err := p.client.FetchSessions(ctx, a.GatewayURL)
	if err != nil {
		p.metrics.GatewayPollFailures.Inc()
		p.logger.Warn("gateway poll failed",
			zap.String("agent", a.Name), zap.Error(err))
		return
	}

	if err := p.ingest.IngestSessions(ctx, a.ID, snapshots); err != nil {
		p.logger.Error("session ingest failed",
			zap.String("agent", a.Name), zap.Error(err))
		return
	}
	if err := p.ingest.Heartbeat(ctx, a.ID, domain.AgentOnline); err != nil {
		p.logger.Error("heartbeat update failed",
			zap.String("agent", a.Name), zap.Error(err))
	}
}
