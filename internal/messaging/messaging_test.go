package messaging

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

func TestSendAndConversation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	first, err := s.Send(ctx, "alice", "bob", "hi bob")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := s.Send(ctx, "bob", "alice", "hi alice"); err != nil {
		t.Fatalf("Send reply: %v", err)
	}
	if _, err := s.Send(ctx, "carol", "bob", "unrelated"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conv, err := s.Conversation(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(conv) != 2 {
		t.Fatalf("expected 2 messages in conversation, got %d", len(conv))
	}
	if conv[0].ID != first.ID {
		t.Fatalf("conversation not oldest first: %+v", conv)
	}

	inbox, err := s.Inbox(ctx, "bob")
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(inbox) != 2 {
		t.Fatalf("expected 2 inbox messages for bob, got %d", len(inbox))
	}
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	if _, err := s.Send(ctx, "alice", "alice", "self"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for self message, got %v", err)
	}
	if _, err := s.Send(ctx, "alice", "bob", "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty content, got %v", err)
	}
}

func TestDeleteRequiresSender(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	m, err := s.Send(ctx, "alice", "bob", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	// Even the recipient cannot delete the sender's message.
	if err := s.Delete(ctx, "bob", m.ID); !errors.Is(err, ErrNotSender) {
		t.Fatalf("expected ErrNotSender, got %v", err)
	}
	if err := s.Delete(ctx, "alice", m.ID); err != nil {
		t.Fatalf("Delete by sender: %v", err)
	}
	if err := s.Delete(ctx, "alice", m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
