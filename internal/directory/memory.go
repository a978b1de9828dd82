package directory

import (
	"context"
	"sync"
)

// Memory implements Store in process. Tests and dev mode only.
type Memory struct {
	mu     sync.RWMutex
	byID   map[string]User
	byName map[string]string // username -> id
	hashes map[string]string // id -> password hash
}

// NewMemory creates an empty in-memory directory store.
func NewMemory() *Memory {
	return &Memory{
		byID:   make(map[string]User),
		byName: make(map[string]string),
		hashes: make(map[string]string),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateUser(ctx context.Context, u User, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[u.Username]; exists {
		return ErrUsernameTaken
	}
	m.byID[u.ID] = u
	m.byName[u.Username] = u.ID
	m.hashes[u.ID] = passwordHash
	return nil
}

func (m *Memory) UserByID(ctx context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) UserByUsername(ctx context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.byID[id], nil
}

func (m *Memory) Credentials(ctx context.Context, username string) (User, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	if !ok {
		return User{}, "", ErrNotFound
	}
	return m.byID[id], m.hashes[id], nil
}

func (m *Memory) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byName, u.Username)
	delete(m.hashes, id)
	return nil
}
