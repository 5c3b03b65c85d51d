// Package memstore is a mutex-guarded in-memory store implementation. It is
// the reference semantics for the postgres repositories and the fixture the
// engine test suites run against.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xela07ax/fleetwatch/internal/domain"
	"github.com/xela07ax/fleetwatch/internal/store"
)

type Memstore struct {
	mu         sync.RWMutex
	agents     map[string]*domain.Agent
	sessions   map[string]*domain.Session // keyed agentID + "\x00" + sessionKey
	costs      []domain.CostRecord
	budgets    map[string]*domain.Budget
	rules      map[string]*domain.AlertRule
	alerts     map[string]*domain.Alert
	alertOrder []string
	activities []domain.Activity
	snitches   []domain.SnitchEvent
	channels   map[string]*domain.NotificationChannel
	operators  map[string]*domain.Operator // keyed by username
}

func New() *Memstore {
	return &Memstore{
		agents:    make(map[string]*domain.Agent),
		sessions:  make(map[string]*domain.Session),
		budgets:   make(map[string]*domain.Budget),
		rules:     make(map[string]*domain.AlertRule),
		alerts:    make(map[string]*domain.Alert),
		channels:  make(map[string]*domain.NotificationChannel),
		operators: make(map[string]*domain.Operator),
	}
}

// Store exposes the memstore through the engine's store boundary.
func (m *Memstore) Store() *store.Store {
	return &store.Store{
		Agents:     (*agentStore)(m),
		Sessions:   (*sessionStore)(m),
		Costs:      (*costStore)(m),
		Budgets:    (*budgetStore)(m),
		Rules:      (*ruleStore)(m),
		Alerts:     (*alertStore)(m),
		Activities: (*activityStore)(m),
		Snitches:   (*snitchStore)(m),
		Channels:   (*channelStore)(m),
		Operators:  (*operatorStore)(m),
	}
}

func newID() string { return uuid.New().String() }

func sessionKey(agentID, key string) string { return agentID + "\x00" + key }

// --- agents ---

type agentStore Memstore

func (s *agentStore) Get(_ context.Context, id string) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *agentStore) GetByName(_ context.Context, name string) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.agents {
		if a.Name == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *agentStore) List(_ context.Context) ([]domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *agentStore) Create(_ context.Context, a *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s *agentStore) Update(_ context.Context, a *domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s *agentStore) SetStatus(_ context.Context, id string, status domain.AgentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	return nil
}

func (s *agentStore) Heartbeat(_ context.Context, id string, status domain.AgentStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	a.LastHeartbeat = at
	a.LastSeen = at
	return nil
}

// --- sessions ---

type sessionStore Memstore

func (s *sessionStore) ListByAgent(_ context.Context, agentID string) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Session
	for _, sess := range s.sessions {
		if sess.AgentID == agentID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionKey < out[j].SessionKey })
	return out, nil
}

func (s *sessionStore) GetByKey(_ context.Context, agentID, key string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionKey(agentID, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *sessionStore) Create(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = newID()
	}
	cp := *sess
	s.sessions[sessionKey(sess.AgentID, sess.SessionKey)] = &cp
	return nil
}

func (s *sessionStore) Update(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sessionKey(sess.AgentID, sess.SessionKey)
	if _, ok := s.sessions[k]; !ok {
		return domain.ErrNotFound
	}
	cp := *sess
	s.sessions[k] = &cp
	return nil
}

// --- costs ---

type costStore Memstore

func (s *costStore) Insert(_ context.Context, c *domain.CostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	s.costs = append(s.costs, *c)
	return nil
}

func (s *costStore) ListRange(_ context.Context, agentID string, start, end time.Time) ([]domain.CostRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CostRecord
	for _, c := range s.costs {
		if agentID != "" && c.AgentID != agentID {
			continue
		}
		if c.Timestamp.Before(start) || !c.Timestamp.Before(end) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// --- budgets ---

type budgetStore Memstore

func (s *budgetStore) Get(_ context.Context, id string) (*domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *budgetStore) List(_ context.Context) ([]domain.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *budgetStore) ListActive(ctx context.Context) ([]domain.Budget, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, b := range all {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *budgetStore) Create(_ context.Context, b *domain.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = newID()
	}
	cp := *b
	s.budgets[b.ID] = &cp
	return nil
}

func (s *budgetStore) Update(_ context.Context, b *domain.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[b.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *b
	s.budgets[b.ID] = &cp
	return nil
}

func (s *budgetStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.budgets, id)
	return nil
}

func (s *budgetStore) Mutate(_ context.Context, id string, fn func(*domain.Budget) error) (*domain.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	cp := *b
	return &cp, nil
}

// --- rules ---

type ruleStore Memstore

func (s *ruleStore) Get(_ context.Context, id string) (*domain.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *ruleStore) List(_ context.Context) ([]domain.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *ruleStore) ListActive(ctx context.Context) ([]domain.AlertRule, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, r := range all {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *ruleStore) Create(_ context.Context, r *domain.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = newID()
	}
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *ruleStore) Update(_ context.Context, r *domain.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[r.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *ruleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *ruleStore) SetLastTriggered(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return domain.ErrNotFound
	}
	t := at
	r.LastTriggered = &t
	return nil
}

// --- alerts ---

type alertStore Memstore

func (s *alertStore) Insert(_ context.Context, a *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	cp := *a
	s.alerts[a.ID] = &cp
	s.alertOrder = append(s.alertOrder, a.ID)
	return nil
}

func (s *alertStore) ListRecent(_ context.Context, limit int) ([]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Alert
	for i := len(s.alertOrder) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.alerts[s.alertOrder[i]])
	}
	return out, nil
}

func (s *alertStore) Acknowledge(_ context.Context, id string, at time.Time) error {
	return (*Memstore)(s).setAlertTimestamp(id, at, func(a *domain.Alert, t *time.Time) {
		if a.AcknowledgedAt == nil {
			a.AcknowledgedAt = t
		}
	})
}

func (s *alertStore) Resolve(_ context.Context, id string, at time.Time) error {
	return (*Memstore)(s).setAlertTimestamp(id, at, func(a *domain.Alert, t *time.Time) {
		if a.ResolvedAt == nil {
			a.ResolvedAt = t
		}
	})
}

func (m *Memstore) setAlertTimestamp(id string, at time.Time, set func(*domain.Alert, *time.Time)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return domain.ErrNotFound
	}
	t := at
	set(a, &t)
	return nil
}

// --- activities ---

type activityStore Memstore

func (s *activityStore) Insert(_ context.Context, a *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	s.activities = append(s.activities, *a)
	return nil
}

func (s *activityStore) RecentByAgent(_ context.Context, agentID string, limit int) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Activity
	for i := len(s.activities) - 1; i >= 0 && len(out) < limit; i-- {
		if s.activities[i].AgentID == agentID {
			out = append(out, s.activities[i])
		}
	}
	return out, nil
}

func (s *activityStore) Recent(_ context.Context, limit int) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Activity
	for i := len(s.activities) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.activities[i])
	}
	return out, nil
}

// --- snitch events ---

type snitchStore Memstore

func (s *snitchStore) Insert(_ context.Context, e *domain.SnitchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	s.snitches = append(s.snitches, *e)
	return nil
}

func (s *snitchStore) ListByAgent(_ context.Context, agentID string) ([]domain.SnitchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.SnitchEvent
	for _, e := range s.snitches {
		if e.AgentID == agentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- notification channels ---

type channelStore Memstore

func (s *channelStore) List(_ context.Context) ([]domain.NotificationChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.NotificationChannel, 0, len(s.channels))
	for _, c := range s.channels {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *channelStore) Create(_ context.Context, c *domain.NotificationChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	cp := *c
	s.channels[c.ID] = &cp
	return nil
}

func (s *channelStore) Update(_ context.Context, c *domain.NotificationChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[c.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *c
	s.channels[c.ID] = &cp
	return nil
}

func (s *channelStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.channels, id)
	return nil
}

// --- operators ---

type operatorStore Memstore

func (s *operatorStore) GetByUsername(_ context.Context, username string) (*domain.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operators[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *op
	return &cp, nil
}

// AddOperator seeds a console account (test helper).
func (m *Memstore) AddOperator(op domain.Operator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op.ID == "" {
		op.ID = newID()
	}
	m.operators[op.Username] = &op
}
