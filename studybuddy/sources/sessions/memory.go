package sessions

import (
	"context"
	"sync"
	"time"

	"studybuddy/studybuddy/types"
)

// MemoryStore keeps sessions in process memory; they are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionData
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions: make(map[string]*SessionData),
		ttl:      ttl,
		now:      now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, data *SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	data.CreatedAt = now
	data.UpdatedAt = now
	data.ExpiresAt = now.Add(s.ttl)
	data.Version = 1

	s.sessions[data.ID] = data.clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	now := s.now()
	if !now.Before(stored.ExpiresAt) {
		delete(s.sessions, id)
		return nil, nil
	}
	stored.ExpiresAt = now.Add(s.ttl)
	return stored.clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, data *SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[data.ID]
	if !ok || !s.now().Before(stored.ExpiresAt) {
		delete(s.sessions, data.ID)
		return types.ErrNotFound
	}
	if stored.Version != data.Version {
		return types.ErrVersionConflict
	}

	now := s.now()
	data.Version++
	data.UpdatedAt = now
	data.ExpiresAt = now.Add(s.ttl)
	s.sessions[data.ID] = data.clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*SessionData)
	return nil
}
