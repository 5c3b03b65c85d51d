package server_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xela07ax/fleetwatch/internal/budget"
	"github.com/xela07ax/fleetwatch/internal/console/handler"
	"github.com/xela07ax/fleetwatch/internal/console/server"
	"github.com/xela07ax/fleetwatch/internal/console/service"
	"github.com/xela07ax/fleetwatch/internal/costs"
	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/infra"
	"github.com/xela07ax/fleetwatch/internal/ingest"
	"github.com/xela07ax/fleetwatch/internal/rules"
	"github.com/xela07ax/fleetwatch/internal/score"
	"github.com/xela07ax/fleetwatch/internal/store/memstore"
)

type fakeStops struct {
	stopped map[string]bool
}

func (f *fakeStops) Stop(_ context.Context, id string) error {
	f.stopped[id] = true
	return nil
}

func (f *fakeStops) Resume(_ context.Context, id string) error {
	delete(f.stopped, id)
	return nil
}

func (f *fakeStops) IsStopped(id string) bool { return f.stopped[id] }

func newTestServer(t *testing.T) (*server.ConsoleServer, *memstore.Memstore, *fakeStops) {
	t.Helper()

	mem := memstore.New()
	st := mem.Store()
	logger := zap.NewNop()
	metrics := infra.NewMetrics(nil)
	stops := &fakeStops{stopped: make(map[string]bool)}

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	mem.AddOperator(domain.Operator{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         "admin",
		Scopes:       map[string]bool{"admin": true},
	})

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	authService := service.NewAuthService(st.Operators, key, &key.PublicKey, time.Hour)

	ledger := budget.NewLedger(st.Budgets, logger)
	agg := costs.NewAggregator(st.Costs)
	scoreEngine := score.NewEngine(st.Snitches, st.Agents, logger)
	ingestSvc := ingest.NewService(st, ledger, stops, metrics, logger)
	evaluator := rules.NewEvaluator(st, agg, nil, metrics, logger)

	srv := server.NewConsoleServer(
		logger,
		authService,
		handler.NewAuthHandler(authService),
		handler.NewAgentHandler(st.Agents, stops, logger),
		handler.NewBudgetHandler(st.Budgets, ledger),
		handler.NewRuleHandler(st.Rules, evaluator),
		handler.NewAlertHandler(st.Alerts),
		handler.NewCostHandler(agg),
		handler.NewSnitchHandler(scoreEngine),
		handler.NewActivityHandler(st.Activities),
		handler.NewChannelHandler(st.Channels),
		handler.NewIngestHandler(ingestSvc),
		handler.NewDashboardHandler(st, agg, stops),
	)
	return srv, mem, stops
}

func doJSON(t *testing.T, srv http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, srv http.Handler) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/auth/token", "",
		domain.LoginRequest{Username: "admin", Password: "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/auth/token", "",
		domain.LoginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/auth/token", "",
		domain.LoginRequest{Username: "nobody", Password: "hunter2"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedPerimeterNeedsToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/v1/agents/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/agents/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "the healthcheck stays public")
}

func TestAgentLifecycleOverHTTP(t *testing.T) {
	srv, _, stops := newTestServer(t)
	token := login(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/v1/agents/", token,
		map[string]any{"name": "alpha", "gateway_url": "http://gw"})
	require.Equal(t, http.StatusOK, rec.Code)
	var agent domain.Agent
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&agent))

	rec = doJSON(t, srv, http.MethodPost, "/v1/agents/"+agent.ID+"/stop", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, stops.IsStopped(agent.ID))

	rec = doJSON(t, srv, http.MethodPost, "/v1/agents/"+agent.ID+"/resume", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, stops.IsStopped(agent.ID))

	rec = doJSON(t, srv, http.MethodPost, "/v1/agents/missing/stop", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBudgetCRUDOverHTTP(t *testing.T) {
	srv, _, _ := newTestServer(t)
	token := login(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/v1/budgets/", token,
		map[string]any{"name": "daily cap", "period": "daily", "limit": 5.0, "hard_stop": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	var b domain.Budget
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&b))
	assert.Equal(t, domain.MoneyFromDollars(5), b.Limit)
	assert.False(t, b.ResetAt.IsZero())

	rec = doJSON(t, srv, http.MethodPost, "/v1/budgets/", token,
		map[string]any{"name": "bad", "period": "fortnightly", "limit": 5.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/v1/budgets/"+b.ID+"/", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBudgetSpendOverHTTP(t *testing.T) {
	srv, _, _ := newTestServer(t)
	token := login(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/v1/budgets/", token,
		map[string]any{"name": "daily cap", "period": "daily", "limit": 5.0})
	require.Equal(t, http.StatusCreated, rec.Code)
	var b domain.Budget
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&b))

	rec = doJSON(t, srv, http.MethodPost, "/v1/budgets/"+b.ID+"/spend", token,
		map[string]any{"amount": 3.0})
	require.Equal(t, http.StatusOK, rec.Code)
	var res budget.SpendResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.False(t, res.Exceeded)
	assert.Equal(t, domain.MoneyFromDollars(3), res.CurrentSpend)

	rec = doJSON(t, srv, http.MethodPost, "/v1/budgets/"+b.ID+"/spend", token,
		map[string]any{"amount": 3.0})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Exceeded, "the second entry pushes the counter past the limit")
	assert.Equal(t, domain.MoneyFromDollars(6), res.CurrentSpend)

	rec = doJSON(t, srv, http.MethodPost, "/v1/budgets/missing/spend", token,
		map[string]any{"amount": 1.0})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/budgets/"+b.ID+"/spend", token,
		map[string]any{"amount": -1.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnitchScoreOverHTTP(t *testing.T) {
	srv, _, _ := newTestServer(t)
	token := login(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/v1/agents/", token, map[string]any{"name": "alpha"})
	require.Equal(t, http.StatusOK, rec.Code)
	var agent domain.Agent
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&agent))

	rec = doJSON(t, srv, http.MethodPost, "/v1/snitches/", token, map[string]any{
		"agent_id": agent.ID, "type": "tattled_on_user", "description": "told the boss",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/agents/"+agent.ID+"/score", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var card score.Scorecard
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&card))
	assert.Equal(t, 51, card.Score)
	assert.Equal(t, "Hall Monitor", card.Label)
}
