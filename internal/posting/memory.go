package posting

import (
	"context"
	"sort"
	"sync"
)

// Memory implements Store in process. Tests and dev mode only.
type Memory struct {
	mu    sync.RWMutex
	posts map[string]Post
}

func NewMemory() *Memory {
	return &Memory{posts: make(map[string]Post)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Insert(ctx context.Context, p Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[p.ID] = p
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListByAuthor(ctx context.Context, author string) ([]Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Post
	for _, p := range m.posts {
		if p.Author == author {
			out = append(out, p)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *Memory) ListRecent(ctx context.Context, limit int) ([]Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, p)
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

// PurgeUser removes every post authored by the user. Mirrors the Postgres
// ON DELETE CASCADE behavior.
func (m *Memory) PurgeUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.posts {
		if p.Author == userID {
			delete(m.posts, id)
		}
	}
	return nil
}

func sortNewestFirst(posts []Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
