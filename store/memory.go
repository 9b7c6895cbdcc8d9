package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a thread-safe in-memory Store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	steps    map[string][]Step
	order    []string
	now      func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*Session),
		steps:    make(map[string][]Step),
		now:      time.Now,
	}
}

// Begin records a new session. Status defaults to running.
func (m *Memory) Begin(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.StartedAt.IsZero() {
		s.StartedAt = m.now()
	}
	if s.Status == "" {
		s.Status = StatusRunning
	}
	if _, ok := m.sessions[s.ID]; !ok {
		m.order = append(m.order, s.ID)
	}
	m.sessions[s.ID] = &s
	return nil
}

// RecordStep appends a step to its session.
func (m *Memory) RecordStep(_ context.Context, step Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[step.SessionID]; !ok {
		return ErrSessionNotFound
	}
	if step.At.IsZero() {
		step.At = m.now()
	}
	m.steps[step.SessionID] = append(m.steps[step.SessionID], step)
	return nil
}

// Finish sets the final status and response of a session.
func (m *Memory) Finish(_ context.Context, id string, status Status, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Status = status
	s.Response = response
	s.FinishedAt = m.now()
	return nil
}

// Sessions returns sessions newest first.
func (m *Memory) Sessions(_ context.Context, limit int) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Session, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, *m.sessions[m.order[i]])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Session returns one session.
func (m *Memory) Session(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// Steps returns the steps of a session in order.
func (m *Memory) Steps(_ context.Context, id string) ([]Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[id]; !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]Step, len(m.steps[id]))
	copy(out, m.steps[id])
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
