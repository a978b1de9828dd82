package posting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lattice.social/internal/ids"
)

var (
	ErrNotFound     = errors.New("posting: post not found")
	ErrNotAuthor    = errors.New("posting: caller is not the author")
	ErrInvalidInput = errors.New("posting: invalid input")
)

const maxContentLen = 4000

// Post is a public entry authored by one user.
type Post struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store describes persistence operations for posts.
type Store interface {
	Insert(ctx context.Context, p Post) error
	Get(ctx context.Context, id string) (Post, error)
	ListByAuthor(ctx context.Context, author string) ([]Post, error)
	ListRecent(ctx context.Context, limit int) ([]Post, error)
	Delete(ctx context.Context, id string) error
}

// Service owns the post collection and its ownership checks.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("posting: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// Create inserts a new post authored by the given user.
func (s *Service) Create(ctx context.Context, author, content string) (Post, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return Post{}, fmt.Errorf("%w: author is required", ErrInvalidInput)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Post{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(content) > maxContentLen {
		return Post{}, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, maxContentLen)
	}
	p := Post{ID: ids.New(), Author: author, Content: content, CreatedAt: s.now().UTC()}
	if err := s.store.Insert(ctx, p); err != nil {
		return Post{}, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (Post, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByAuthor(ctx context.Context, author string) ([]Post, error) {
	return s.store.ListByAuthor(ctx, author)
}

// ListRecent returns the newest posts, capped at 100 per call.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListRecent(ctx, limit)
}

// AssertAuthor fails with ErrNotAuthor unless the caller authored the post.
// Callers must abort on error before mutating.
func (s *Service) AssertAuthor(ctx context.Context, caller, postID string) error {
	p, err := s.store.Get(ctx, postID)
	if err != nil {
		return err
	}
	if p.Author != caller {
		return fmt.Errorf("%w: post %s", ErrNotAuthor, postID)
	}
	return nil
}

// Delete removes a post after verifying the caller authored it.
func (s *Service) Delete(ctx context.Context, caller, postID string) error {
	if err := s.AssertAuthor(ctx, caller, postID); err != nil {
		return err
	}
	return s.store.Delete(ctx, postID)
}
