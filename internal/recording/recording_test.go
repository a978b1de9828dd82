package recording

import (
	"context"
	"errors"
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

	r, err := s.Create(ctx, "alice", "running", "5k around the park")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, "bob", "cycling", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	mine, err := s.ListByRecorder(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByRecorder: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != r.ID {
		t.Fatalf("unexpected listing: %+v", mine)
	}
}

func TestCreateValidation(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Create(context.Background(), "alice", "  ", "note"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeleteRequiresRecorder(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	r, err := s.Create(ctx, "alice", "reading", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Delete(ctx, "bob", r.ID); !errors.Is(err, ErrNotRecorder) {
		t.Fatalf("expected ErrNotRecorder, got %v", err)
	}
	if err := s.Delete(ctx, "alice", r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "alice", r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
