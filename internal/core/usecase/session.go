package usecase

import (
	"sync"
	"time"

	"github.com/kirillkom/exoplanet-triage/internal/core/domain"
)

const defaultSessionTTL = 30 * time.Minute

type sessionSlot struct {
	session  *domain.Session
	lastSeen time.Time
}

// SessionStore keeps per-session ledgers in memory. Sessions idle longer than
// the TTL are evicted lazily on access.
type SessionStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	slots map[string]*sessionSlot
	now   func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		ttl:   ttl,
		slots: make(map[string]*sessionSlot),
		now:   time.Now,
	}
}

func (s *SessionStore) Create(identity string) *domain.Session {
	session := domain.NewSession(identity)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.slots[session.ID] = &sessionSlot{session: session, lastSeen: s.now()}
	return session
}

func (s *SessionStore) Get(id string) (*domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	slot, ok := s.slots[id]
	if !ok {
		return nil, false
	}
	slot.lastSeen = s.now()
	return slot.session, true
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

func (s *SessionStore) evictLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, slot := range s.slots {
		if slot.lastSeen.Before(cutoff) {
			delete(s.slots, id)
		}
	}
}
