package session

import (
	"sync"
	"time"
)

type entry struct {
	controller *Controller
	lastUsed   time.Time
}

// Manager keeps one Controller per client id.
type Manager struct {
	mu       sync.Mutex
	deps     Dependencies
	sessions map[string]*entry
	now      func() time.Time
}

// NewManager constructs a manager whose sessions share deps.
func NewManager(deps Dependencies) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Get returns the session for id, creating it on first use.
func (m *Manager) Get(id string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		deps := m.deps
		if deps.History != nil {
			deps.History = deps.History.Scoped(id)
		}
		e = &entry{controller: NewController(deps)}
		m.sessions[id] = e
	}
	e.lastUsed = m.now()
	return e.controller
}

// Sweep drops sessions idle for longer than maxIdle and reports how many
// were removed.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for id, e := range m.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
