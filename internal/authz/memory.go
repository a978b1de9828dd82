package authz

import (
	"context"
	"sync"
)

// Memory implements Store with in-process concurrency safety. Used in tests
// and dev mode; state does not survive restarts, so deployments use the
// Postgres store.
type Memory struct {
	mu          sync.RWMutex
	denials     map[string]map[Action]Denial
	delegations map[string]map[string]Delegation // authorizer -> authorizee
}

// NewMemory creates an empty in-memory ledger store.
func NewMemory() *Memory {
	return &Memory{
		denials:     make(map[string]map[Action]Denial),
		delegations: make(map[string]map[string]Delegation),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) InsertDenial(ctx context.Context, d Denial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byAction, ok := m.denials[d.User]
	if !ok {
		byAction = make(map[Action]Denial)
		m.denials[d.User] = byAction
	}
	if _, exists := byAction[d.Action]; exists {
		return ErrAlreadyDenied
	}
	byAction[d.Action] = d
	return nil
}

func (m *Memory) DeleteDenial(ctx context.Context, user string, action Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byAction := m.denials[user]
	if _, exists := byAction[action]; !exists {
		return ErrAlreadyAllowed
	}
	delete(byAction, action)
	return nil
}

func (m *Memory) DenialExists(ctx context.Context, user string, action Action) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.denials[user][action]
	return exists, nil
}

func (m *Memory) DenialsByUser(ctx context.Context, user string) ([]Denial, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byAction := m.denials[user]
	out := make([]Denial, 0, len(byAction))
	for _, d := range byAction {
		out = append(out, d)
	}
	return out, nil
}

func (m *Memory) InsertDelegation(ctx context.Context, d Delegation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	edges, ok := m.delegations[d.Authorizer]
	if !ok {
		edges = make(map[string]Delegation)
		m.delegations[d.Authorizer] = edges
	}
	if _, exists := edges[d.Authorizee]; exists {
		return ErrDelegationExists
	}
	edges[d.Authorizee] = d
	return nil
}

func (m *Memory) DeleteDelegation(ctx context.Context, authorizer, authorizee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	edges := m.delegations[authorizer]
	if _, exists := edges[authorizee]; !exists {
		return ErrDelegationNotFound
	}
	delete(edges, authorizee)
	return nil
}

func (m *Memory) DelegationExists(ctx context.Context, authorizer, authorizee string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.delegations[authorizer][authorizee]
	return exists, nil
}

func (m *Memory) AuthorizeesOf(ctx context.Context, authorizer string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	edges := m.delegations[authorizer]
	out := make([]string, 0, len(edges))
	for authorizee := range edges {
		out = append(out, authorizee)
	}
	return out, nil
}

func (m *Memory) AuthorizersOf(ctx context.Context, authorizee string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for authorizer, edges := range m.delegations {
		if _, exists := edges[authorizee]; exists {
			out = append(out, authorizer)
		}
	}
	return out, nil
}

// PurgeUser removes every denial and delegation edge referencing the user.
// Mirrors the ON DELETE CASCADE behavior of the Postgres schema.
func (m *Memory) PurgeUser(ctx context.Context, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.denials, user)
	delete(m.delegations, user)
	for _, edges := range m.delegations {
		delete(edges, user)
	}
	return nil
}
