package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/BizPlanGen/internal/models"
)

// SessionStore keeps per-browser sessions in memory. Callers always receive copies;
// mutation goes through Update so the paid flag can only move forward.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.Session),
		now:      time.Now,
	}
}

func (m *SessionStore) Create() models.Session {
	session := &models.Session{
		ID:        uuid.NewString(),
		Fields:    DefaultPlanRequest(),
		CreatedAt: m.now().UTC(),
	}
	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
	return *session
}

func (m *SessionStore) Get(id string) (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return models.Session{}, false
	}
	return *session, true
}

// Update applies fn under the write lock. A session that was paid stays paid.
func (m *SessionStore) Update(id string, fn func(*models.Session)) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	paid := session.Paid
	fn(session)
	session.Paid = session.Paid || paid
	return *session, nil
}

func (m *SessionStore) MarkPaid(id string) (models.Session, error) {
	return m.Update(id, func(s *models.Session) { s.Paid = true })
}

func (m *SessionStore) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Prune drops sessions created more than maxAge ago and returns how many went.
func (m *SessionStore) Prune(maxAge time.Duration) int {
	cutoff := m.now().UTC().Add(-maxAge)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, session := range m.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *SessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
