package chat

import (
	"context"
	"sync"
)

// Factory builds the pipeline for a new session id.
type Factory func(ctx context.Context, sessionID string) (*Pipeline, error)

// Manager hands out one pipeline per session id. Different sessions run
// concurrently; each pipeline serializes its own messages.
type Manager struct {
	mu       sync.Mutex
	factory  Factory
	sessions map[string]*Pipeline
}

func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory, sessions: map[string]*Pipeline{}}
}

// Session returns the pipeline for id, creating it on first use. The
// factory runs without the manager lock held; when two callers race on a
// new id the first pipeline stored wins.
func (m *Manager) Session(ctx context.Context, id string) (*Pipeline, error) {
	m.mu.Lock()
	p, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return p, nil
	}

	built, err := m.factory(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.sessions[built.SessionID()]; ok {
		return p, nil
	}
	m.sessions[built.SessionID()] = built
	return built, nil
}

// Drop forgets a session. Its persisted history is kept.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
