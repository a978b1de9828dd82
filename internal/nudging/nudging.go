package nudging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lattice.social/internal/ids"
)

var (
	ErrNotFound     = errors.New("nudging: nudge not found")
	ErrNotSender    = errors.New("nudging: caller is not the sender")
	ErrInvalidInput = errors.New("nudging: invalid input")
)

// minInterval bounds periodic nudges so a misconfigured client cannot turn
// the scheduler into a spam loop.
const minInterval = time.Minute

// Nudge is a scheduled reminder from a sender to a recipient. A zero
// Interval means one-shot; a positive Interval re-arms the nudge after each
// delivery.
type Nudge struct {
	ID        string        `json:"id"`
	Sender    string        `json:"sender"`
	Recipient string        `json:"recipient"`
	Message   string        `json:"message"`
	Interval  time.Duration `json:"interval,omitempty"`
	NextAt    time.Time     `json:"next_at"`
	Delivered bool          `json:"delivered"`
	CreatedAt time.Time     `json:"created_at"`
}

// Store describes persistence operations for nudges. Due returns undelivered
// nudges whose NextAt is at or before the given instant.
type Store interface {
	Insert(ctx context.Context, n Nudge) error
	Get(ctx context.Context, id string) (Nudge, error)
	ListBySender(ctx context.Context, sender string) ([]Nudge, error)
	ListByRecipient(ctx context.Context, recipient string) ([]Nudge, error)
	Due(ctx context.Context, now time.Time) ([]Nudge, error)
	MarkDelivered(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, nextAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// Service owns the nudge collection and its ownership checks.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("nudging: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// Create schedules a nudge. A zero firstAt means "due now". Self-nudges are
// allowed; they are personal reminders.
func (s *Service) Create(ctx context.Context, sender, recipient, message string, firstAt time.Time, interval time.Duration) (Nudge, error) {
	sender = strings.TrimSpace(sender)
	recipient = strings.TrimSpace(recipient)
	if sender == "" || recipient == "" {
		return Nudge{}, fmt.Errorf("%w: sender and recipient are required", ErrInvalidInput)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return Nudge{}, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if interval < 0 {
		return Nudge{}, fmt.Errorf("%w: interval cannot be negative", ErrInvalidInput)
	}
	if interval > 0 && interval < minInterval {
		return Nudge{}, fmt.Errorf("%w: interval below %s", ErrInvalidInput, minInterval)
	}
	now := s.now().UTC()
	if firstAt.IsZero() {
		firstAt = now
	}
	n := Nudge{
		ID:        ids.New(),
		Sender:    sender,
		Recipient: recipient,
		Message:   message,
		Interval:  interval,
		NextAt:    firstAt.UTC(),
		CreatedAt: now,
	}
	if err := s.store.Insert(ctx, n); err != nil {
		return Nudge{}, err
	}
	return n, nil
}

// ListBySender returns nudges the user scheduled.
func (s *Service) ListBySender(ctx context.Context, sender string) ([]Nudge, error) {
	return s.store.ListBySender(ctx, sender)
}

// ListByRecipient returns nudges addressed to the user.
func (s *Service) ListByRecipient(ctx context.Context, recipient string) ([]Nudge, error) {
	return s.store.ListByRecipient(ctx, recipient)
}

// AssertSender fails with ErrNotSender unless the caller scheduled the nudge.
func (s *Service) AssertSender(ctx context.Context, caller, nudgeID string) error {
	n, err := s.store.Get(ctx, nudgeID)
	if err != nil {
		return err
	}
	if n.Sender != caller {
		return fmt.Errorf("%w: nudge %s", ErrNotSender, nudgeID)
	}
	return nil
}

// Cancel removes a nudge after verifying the caller scheduled it.
func (s *Service) Cancel(ctx context.Context, caller, nudgeID string) error {
	if err := s.AssertSender(ctx, caller, nudgeID); err != nil {
		return err
	}
	return s.store.Delete(ctx, nudgeID)
}

// CollectDue returns the nudges due at the given instant and advances them:
// periodic nudges are rescheduled one interval forward, one-shot nudges are
// marked delivered. Called by the Scheduler.
func (s *Service) CollectDue(ctx context.Context, now time.Time) ([]Nudge, error) {
	due, err := s.store.Due(ctx, now.UTC())
	if err != nil {
		return nil, err
	}
	for _, n := range due {
		if n.Interval > 0 {
			next := n.NextAt.Add(n.Interval)
			// Catch up after downtime instead of burst-delivering.
			for !next.After(now) {
				next = next.Add(n.Interval)
			}
			if err := s.store.Reschedule(ctx, n.ID, next); err != nil {
				return nil, err
			}
		} else {
			if err := s.store.MarkDelivered(ctx, n.ID); err != nil {
				return nil, err
			}
		}
	}
	return due, nil
}
