package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/gobang-online/internal/dependencies/clock"
	"github.com/mcoot/gobang-online/internal/dependencies/random"
	"github.com/mcoot/gobang-online/internal/model"
)

// Forever pins a session so that it never expires
const Forever time.Duration = -1

const tokenLength = 32

// expiry is the identity of one scheduled deletion. A callback only deletes
// the session while its own expiry is still the one attached.
type expiry struct {
	timer clock.Timer
}

type entry struct {
	session model.Session
	expiry  *expiry
	removed bool
}

// Manager owns login sessions and their idle-timeout timers
type Manager struct {
	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	mu       sync.Mutex
	nextID   model.SessionID
	sessions map[model.SessionID]*entry
}

// NewManager creates an empty session manager
func NewManager(clk clock.Clock, rnd random.Random, logger *slog.Logger) *Manager {
	return &Manager{
		clock:    clk,
		random:   rnd,
		logger:   logger.With(slog.String("component", "session")),
		nextID:   1,
		sessions: make(map[model.SessionID]*entry),
	}
}

// Create allocates a new session for uid. It has no expiry until SetExpiry
// is called.
func (m *Manager) Create(uid model.UserID, state model.LoginState) *model.Session {
	token := m.random.Token(tokenLength)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	e := &entry{session: model.Session{ID: id, Token: token, UserID: uid, State: state}}
	m.sessions[id] = e
	m.mu.Unlock()

	m.logger.Info("session created",
		slog.Uint64("ssid", uint64(id)),
		slog.Uint64("uid", uint64(uid)))

	s := e.session
	return &s
}

// Get returns a copy of the session
func (m *Manager) Get(id model.SessionID) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	s := e.session
	return &s, nil
}

// Remove deletes the session and cancels its timer. Removing an unknown id
// is a no-op.
func (m *Manager) Remove(id model.SessionID) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		e.removed = true
		if e.expiry != nil {
			e.expiry.timer.Stop()
			e.expiry = nil
		}
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		m.logger.Info("session removed", slog.Uint64("ssid", uint64(id)))
	}
}

// SetExpiry pins the session with Forever or (re)arms its deletion after d.
// A cancelled timer may already be firing, so the session is restored by a
// zero-delay task after every cancellation.
func (m *Manager) SetExpiry(id model.SessionID, d time.Duration) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return model.ErrSessionNotFound
	}

	if d != Forever && d <= 0 {
		e.removed = true
		if e.expiry != nil {
			e.expiry.timer.Stop()
			e.expiry = nil
		}
		delete(m.sessions, id)
		m.mu.Unlock()
		m.logger.Info("session expired", slog.Uint64("ssid", uint64(id)))
		return nil
	}

	cancelled := m.rearmLocked(id, e, d)
	m.mu.Unlock()

	if cancelled {
		m.clock.AfterFunc(0, func() { m.reinsert(id, e) })
	}
	return nil
}

// Refresh restarts the deletion timer with d if one is attached. A pinned
// session is left pinned. The check and the re-arm happen under one lock.
func (m *Manager) Refresh(id model.SessionID, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("refresh needs a positive timeout, got %s", d)
	}

	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return model.ErrSessionNotFound
	}
	if e.expiry == nil {
		m.mu.Unlock()
		return nil
	}
	cancelled := m.rearmLocked(id, e, d)
	m.mu.Unlock()

	if cancelled {
		m.clock.AfterFunc(0, func() { m.reinsert(id, e) })
	}
	return nil
}

// HasExpiry reports whether a deletion timer is attached to the session
func (m *Manager) HasExpiry(id model.SessionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	return ok && e.expiry != nil
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// rearmLocked cancels any attached timer and schedules a new one unless d
// is Forever. It reports whether a timer was cancelled. Callers hold m.mu.
func (m *Manager) rearmLocked(id model.SessionID, e *entry, d time.Duration) bool {
	cancelled := false
	if e.expiry != nil {
		e.expiry.timer.Stop()
		e.expiry = nil
		cancelled = true
	}
	if d != Forever {
		m.scheduleLocked(id, e, d)
	}
	return cancelled
}

// scheduleLocked attaches a new deletion timer. Callers hold m.mu and d > 0.
func (m *Manager) scheduleLocked(id model.SessionID, e *entry, d time.Duration) {
	exp := &expiry{}
	exp.timer = m.clock.AfterFunc(d, func() { m.expire(id, exp) })
	e.expiry = exp
}

func (m *Manager) expire(id model.SessionID, exp *expiry) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok || e.expiry != exp {
		m.mu.Unlock()
		return
	}
	e.removed = true
	e.expiry = nil
	delete(m.sessions, id)
	m.mu.Unlock()

	m.logger.Info("session expired", slog.Uint64("ssid", uint64(id)))
}

// reinsert restores a session dropped by a timer that fired while it was
// being cancelled. Removed or expired sessions stay gone.
func (m *Manager) reinsert(id model.SessionID, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.removed {
		return
	}
	if _, ok := m.sessions[id]; !ok {
		m.sessions[id] = e
	}
}
