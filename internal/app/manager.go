package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/elchatico/dualview/internal/core"
)

// Factory supplies everything needed to build a fresh session.
type Factory struct {
	Log          zerolog.Logger
	NewTransport func() (core.Transport, error)
	Provider     core.CaptureProvider
	Config       SessionConfig
}

// Manager holds the single live session. Reset tears the current one down
// completely and reconstructs a fresh one; no component may hold a live
// reference across that boundary.
type Manager struct {
	mu       sync.RWMutex
	f        Factory
	cur      *Session
	onChange func()
}

// NewManager constructs the manager and its first session.
func NewManager(f Factory) (*Manager, error) {
	m := &Manager{f: f}
	t, err := f.NewTransport()
	if err != nil {
		return nil, err
	}
	m.cur = NewSession(f.Log, f.Config, t, f.Provider, m.notify)
	return m, nil
}

// SetOnChange installs the presentation-layer change notification. Change
// events from any past or future session funnel through it.
func (m *Manager) SetOnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Session returns the live session.
func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Reset unconditionally tears down the live session and replaces it with
// a fresh one. It never fails: teardown errors are swallowed, and if the
// replacement transport cannot be built the closed session stays in place
// with its status explaining the situation.
func (m *Manager) Reset() {
	m.mu.Lock()
	old := m.cur
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}

	t, err := m.f.NewTransport()
	if err != nil {
		m.f.Log.Error().Err(err).Str("module", "manager").Msg("transport rebuild failed")
		if old != nil {
			old.setStatus("reset incomplete, restart the application")
		}
		return
	}

	fresh := NewSession(m.f.Log, m.f.Config, t, m.f.Provider, m.notify)
	m.mu.Lock()
	m.cur = fresh
	m.mu.Unlock()

	m.f.Log.Info().Str("module", "manager").Msg("session reset")
	m.notify()
}

// Close tears down the live session for process shutdown.
func (m *Manager) Close() {
	m.mu.RLock()
	cur := m.cur
	m.mu.RUnlock()
	if cur != nil {
		cur.Close()
	}
}

func (m *Manager) notify() {
	m.mu.RLock()
	fn := m.onChange
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
