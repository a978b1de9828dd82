package posting

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(NewMemory())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	p, err := s.Create(ctx, "alice", "  hello world  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Content != "hello world" {
		t.Fatalf("content not trimmed: %q", p.Content)
	}
	if _, err := s.Create(ctx, "bob", "second"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	mine, err := s.ListByAuthor(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByAuthor: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != p.ID {
		t.Fatalf("unexpected author listing: %+v", mine)
	}
	recent, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent posts, got %d", len(recent))
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	if _, err := s.Create(ctx, "alice", "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty content, got %v", err)
	}
	if _, err := s.Create(ctx, "", "content"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty author, got %v", err)
	}
	if _, err := s.Create(ctx, "alice", strings.Repeat("x", maxContentLen+1)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversized content, got %v", err)
	}
}

func TestDeleteRequiresAuthor(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	p, err := s.Create(ctx, "alice", "mine")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, "bob", p.ID); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("expected ErrNotAuthor, got %v", err)
	}
	if _, err := s.Get(ctx, p.ID); err != nil {
		t.Fatalf("post must survive failed delete: %v", err)
	}
	if err := s.Delete(ctx, "alice", p.ID); err != nil {
		t.Fatalf("Delete by author: %v", err)
	}
	if _, err := s.Get(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
