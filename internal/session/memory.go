package session

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache guarded by a single mutex.
type Memory struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// NewMemory returns an empty cache.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[int64]Session)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, senderID int64) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[senderID]
	return s, ok, nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SenderID] = s
	return nil
}

// Claim implements Cache.
func (m *Memory) Claim(_ context.Context, senderID int64, groupID string) (Session, ClaimResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[senderID]
	if !ok || !s.pairs(groupID) {
		return Session{}, ClaimMissing, nil
	}
	if s.Consumed {
		return s, ClaimConsumed, nil
	}
	s.Consumed = true
	m.sessions[senderID] = s
	return s, ClaimOK, nil
}

// Sweep implements Cache.
func (m *Memory) Sweep(_ context.Context, now time.Time, timeout time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.Expired(now, timeout) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len implements Cache.
func (m *Memory) Len(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), nil
}

// Close implements Cache.
func (m *Memory) Close() error { return nil }
