// Package poller pulls session snapshots from each agent's gateway on an
// interval, so the fleet view stays fresh even when gateways never push.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/xela07ax/fleetwatch/internal/ingest"
)

// GatewayClient fetches snapshots over HTTP with a shared rate limit, a
// circuit breaker and bounded retries. One breaker covers the whole fleet:
// a flapping network should back the poller off globally.
type GatewayClient struct {
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

func NewGatewayClient(timeout time.Duration, ratePerSec float64) *GatewayClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gateway-poll",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &GatewayClient{
		http:    &http.Client{Timeout: timeout},
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 5),
		timeout: timeout,
	}
}

// FetchSessions hits {gatewayURL}/sessions and decodes the snapshot list.
func (c *GatewayClient) FetchSessions(ctx context.Context, gatewayURL string) ([]ingest.SessionSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var snapshots []ingest.SessionSnapshot

	_, err := c.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
			retry.DelayType(retry.BackOffDelay),
		)
		return nil, r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			var fetchErr error
			snapshots, fetchErr = c.fetch(tCtx, gatewayURL)
			return fetchErr
		})
	})
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (c *GatewayClient) fetch(ctx context.Context, gatewayURL string) ([]ingest.SessionSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gatewayURL+"/sessions", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("gateway returned %s", resp.Status)
	}

	var snapshots []ingest.SessionSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshots); err != nil {
		return nil, fmt.Errorf("decoding snapshots: %w", err)
	}
	return snapshots, nil
}
