package nudging

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory implements Store in process. Tests and dev mode only.
type Memory struct {
	mu     sync.RWMutex
	nudges map[string]Nudge
}

func NewMemory() *Memory {
	return &Memory{nudges: make(map[string]Nudge)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Insert(ctx context.Context, n Nudge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nudges[n.ID] = n
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (Nudge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nudges[id]
	if !ok {
		return Nudge{}, ErrNotFound
	}
	return n, nil
}

func (m *Memory) ListBySender(ctx context.Context, sender string) ([]Nudge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Nudge
	for _, n := range m.nudges {
		if n.Sender == sender {
			out = append(out, n)
		}
	}
	sortByNextAt(out)
	return out, nil
}

func (m *Memory) ListByRecipient(ctx context.Context, recipient string) ([]Nudge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Nudge
	for _, n := range m.nudges {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	sortByNextAt(out)
	return out, nil
}

func (m *Memory) Due(ctx context.Context, now time.Time) ([]Nudge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Nudge
	for _, n := range m.nudges {
		if !n.Delivered && !n.NextAt.After(now) {
			out = append(out, n)
		}
	}
	sortByNextAt(out)
	return out, nil
}

func (m *Memory) MarkDelivered(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nudges[id]
	if !ok {
		return ErrNotFound
	}
	n.Delivered = true
	m.nudges[id] = n
	return nil
}

func (m *Memory) Reschedule(ctx context.Context, id string, nextAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nudges[id]
	if !ok {
		return ErrNotFound
	}
	n.NextAt = nextAt
	m.nudges[id] = n
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nudges[id]; !ok {
		return ErrNotFound
	}
	delete(m.nudges, id)
	return nil
}

// PurgeUser removes every nudge the user scheduled or receives.
func (m *Memory) PurgeUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range m.nudges {
		if n.Sender == userID || n.Recipient == userID {
			delete(m.nudges, id)
		}
	}
	return nil
}

func sortByNextAt(nudges []Nudge) {
	sort.Slice(nudges, func(i, j int) bool { return nudges[i].NextAt.Before(nudges[j].NextAt) })
}
