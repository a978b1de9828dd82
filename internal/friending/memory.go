package friending

import (
	"context"
	"sort"
	"sync"
)

// Memory implements Store in process. Tests and dev mode only.
type Memory struct {
	mu    sync.RWMutex
	links map[string]Friendship
}

func NewMemory() *Memory {
	return &Memory{links: make(map[string]Friendship)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Insert(ctx context.Context, f Friendship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[f.ID] = f
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.links[id]
	if !ok {
		return Friendship{}, ErrNotFound
	}
	return f, nil
}

func (m *Memory) FindBetween(ctx context.Context, a, b string) (Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.links {
		if (f.Requester == a && f.Target == b) || (f.Requester == b && f.Target == a) {
			return f, nil
		}
	}
	return Friendship{}, ErrNotFound
}

func (m *Memory) ListByUser(ctx context.Context, user string) ([]Friendship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Friendship
	for _, f := range m.links {
		if f.Requester == user || f.Target == user {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) SetStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.links[id]
	if !ok {
		return ErrNotFound
	}
	f.Status = status
	m.links[id] = f
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[id]; !ok {
		return ErrNotFound
	}
	delete(m.links, id)
	return nil
}

// PurgeUser removes every friendship involving the user.
func (m *Memory) PurgeUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, f := range m.links {
		if f.Requester == userID || f.Target == userID {
			delete(m.links, id)
		}
	}
	return nil
}
