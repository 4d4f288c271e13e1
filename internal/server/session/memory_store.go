package session

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	values  map[string]string
	expires time.Time
}

// MemoryStore keeps session state in process memory. Sessions expire ttl
// after their last write.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// live returns the session if present and not expired. Caller holds mu.
func (s *MemoryStore) live(sessionID string) *memorySession {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if s.ttl > 0 && s.now().After(sess.expires) {
		delete(s.sessions, sessionID)
		return nil
	}
	return sess
}

func (s *MemoryStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		return "", false, nil
	}
	v, ok := sess.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		sess = &memorySession{values: make(map[string]string)}
		s.sessions[sessionID] = sess
	}
	sess.values[key] = value
	sess.expires = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Take(ctx context.Context, sessionID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		return "", false, nil
	}
	v, ok := sess.values[key]
	if ok {
		delete(sess.values, key)
	}
	return v, ok, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.live(sessionID); sess != nil {
		delete(sess.values, key)
	}
	return nil
}

func (s *MemoryStore) Destroy(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id := range s.sessions {
		if s.live(id) == nil {
			n++
		}
	}
	return n
}
