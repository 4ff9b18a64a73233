package identity

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu    sync.RWMutex
	users []User
}

// NewMemoryStore builds an in-memory user store for tests and throwaway runs.
func NewMemoryStore(seed ...User) Store {
	return &memoryStore{users: append([]User(nil), seed...)}
}

func (s *memoryStore) Load(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]User, 0, len(s.users)), s.users...), nil
}

func (s *memoryStore) Save(_ context.Context, users []User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(make([]User, 0, len(users)), users...)
	return nil
}

func (s *memoryStore) Ping(_ context.Context) error {
	return nil
}
