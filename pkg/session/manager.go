// Package session issues and tracks opaque caller identities. The core
// treats a session id purely as a bidder identifier; no authentication is
// attached to it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session is one caller identity with a sliding expiration.
type Session struct {
	ID         string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Manager owns all live sessions and sweeps expired ones in the background.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	log      logrus.FieldLogger

	// onExpired is invoked with the removed session ids after each sweep.
	onExpired func([]string)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a session manager with the given time-to-live.
func NewManager(ttl time.Duration, log logrus.FieldLogger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		log:      log.WithField("component", "sessions"),
	}
}

// OnExpired registers a callback receiving the ids removed by each cleanup
// sweep. Must be called before Start.
func (m *Manager) OnExpired(fn func([]string)) {
	m.onExpired = fn
}

// Create issues a new session.
func (m *Manager) Create() Session {
	now := time.Now()
	session := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return *session
}

// Get returns the session and extends its expiration. Expired sessions are
// removed and reported as missing.
func (m *Manager) Get(sessionID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, false
	}

	now := time.Now()
	if now.After(session.ExpiresAt) {
		delete(m.sessions, sessionID)

		return Session{}, false
	}

	session.LastActive = now
	session.ExpiresAt = now.Add(m.ttl)

	return *session, true
}

// Validate reports whether the session exists and is not expired.
func (m *Manager) Validate(sessionID string) bool {
	_, ok := m.Get(sessionID)

	return ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// CleanupExpired removes all expired sessions and returns their ids.
func (m *Manager) CleanupExpired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	var removed []string

	for id, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			removed = append(removed, id)
			delete(m.sessions, id)
		}
	}

	return removed
}

// Start launches the periodic cleanup loop.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := m.CleanupExpired()
				if len(removed) == 0 {
					continue
				}

				if m.onExpired != nil {
					m.onExpired(removed)
				}

				m.log.WithField("count", len(removed)).Info("Cleaned up expired sessions")
			}
		}
	}()
}

// Stop terminates the cleanup loop.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}

	m.wg.Wait()
}
