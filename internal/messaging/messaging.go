package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lattice.social/internal/ids"
)

var (
	ErrNotFound     = errors.New("messaging: message not found")
	ErrNotSender    = errors.New("messaging: caller is not the sender")
	ErrInvalidInput = errors.New("messaging: invalid input")
)

const maxContentLen = 2000

// Message is a direct message between two users.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	SentAt    time.Time `json:"sent_at"`
}

// Store describes persistence operations for messages.
type Store interface {
	Insert(ctx context.Context, m Message) error
	Get(ctx context.Context, id string) (Message, error)
	Inbox(ctx context.Context, recipient string) ([]Message, error)
	Conversation(ctx context.Context, a, b string) ([]Message, error)
	Delete(ctx context.Context, id string) error
}

// Service owns the message collection and its ownership checks.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("messaging: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// Send records a message from sender to recipient.
func (s *Service) Send(ctx context.Context, sender, recipient, content string) (Message, error) {
	sender = strings.TrimSpace(sender)
	recipient = strings.TrimSpace(recipient)
	if sender == "" || recipient == "" {
		return Message{}, fmt.Errorf("%w: sender and recipient are required", ErrInvalidInput)
	}
	if sender == recipient {
		return Message{}, fmt.Errorf("%w: cannot message oneself", ErrInvalidInput)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(content) > maxContentLen {
		return Message{}, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, maxContentLen)
	}
	m := Message{
		ID:        ids.New(),
		Sender:    sender,
		Recipient: recipient,
		Content:   content,
		SentAt:    s.now().UTC(),
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Inbox lists messages received by the user, newest first.
func (s *Service) Inbox(ctx context.Context, recipient string) ([]Message, error) {
	return s.store.Inbox(ctx, recipient)
}

// Conversation lists messages exchanged between two users in either
// direction, oldest first.
func (s *Service) Conversation(ctx context.Context, a, b string) ([]Message, error) {
	return s.store.Conversation(ctx, a, b)
}

// AssertSender fails with ErrNotSender unless the caller sent the message.
func (s *Service) AssertSender(ctx context.Context, caller, messageID string) error {
	m, err := s.store.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if m.Sender != caller {
		return fmt.Errorf("%w: message %s", ErrNotSender, messageID)
	}
	return nil
}

// Delete removes a message after verifying the caller sent it.
func (s *Service) Delete(ctx context.Context, caller, messageID string) error {
	if err := s.AssertSender(ctx, caller, messageID); err != nil {
		return err
	}
	return s.store.Delete(ctx, messageID)
}
