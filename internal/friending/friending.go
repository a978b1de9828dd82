package friending

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lattice.social/internal/ids"
)

var (
	ErrNotFound       = errors.New("friending: friendship not found")
	ErrAlreadyLinked  = errors.New("friending: request or friendship already exists")
	ErrNotTarget      = errors.New("friending: caller is not the request target")
	ErrNotParticipant = errors.New("friending: caller is not part of the friendship")
	ErrInvalidInput   = errors.New("friending: invalid input")
)

// Friendship statuses.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Friendship is a directed request that becomes a mutual link on acceptance.
type Friendship struct {
	ID        string    `json:"id"`
	Requester string    `json:"requester"`
	Target    string    `json:"target"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Store describes persistence operations for friendships. FindBetween must
// match the pair in either direction.
type Store interface {
	Insert(ctx context.Context, f Friendship) error
	Get(ctx context.Context, id string) (Friendship, error)
	FindBetween(ctx context.Context, a, b string) (Friendship, error)
	ListByUser(ctx context.Context, user string) ([]Friendship, error)
	SetStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

// Service owns the friendship collection.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("friending: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// Request creates a pending friendship from requester to target.
func (s *Service) Request(ctx context.Context, requester, target string) (Friendship, error) {
	requester = strings.TrimSpace(requester)
	target = strings.TrimSpace(target)
	if requester == "" || target == "" {
		return Friendship{}, fmt.Errorf("%w: requester and target are required", ErrInvalidInput)
	}
	if requester == target {
		return Friendship{}, fmt.Errorf("%w: cannot befriend oneself", ErrInvalidInput)
	}
	if _, err := s.store.FindBetween(ctx, requester, target); err == nil {
		return Friendship{}, ErrAlreadyLinked
	} else if !errors.Is(err, ErrNotFound) {
		return Friendship{}, err
	}
	f := Friendship{
		ID:        ids.New(),
		Requester: requester,
		Target:    target,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, f); err != nil {
		return Friendship{}, err
	}
	return f, nil
}

// Accept marks a pending request accepted. Only the target may accept.
func (s *Service) Accept(ctx context.Context, caller, friendshipID string) (Friendship, error) {
	f, err := s.store.Get(ctx, friendshipID)
	if err != nil {
		return Friendship{}, err
	}
	if f.Target != caller {
		return Friendship{}, fmt.Errorf("%w: friendship %s", ErrNotTarget, friendshipID)
	}
	if f.Status == StatusAccepted {
		return Friendship{}, ErrAlreadyLinked
	}
	if err := s.store.SetStatus(ctx, friendshipID, StatusAccepted); err != nil {
		return Friendship{}, err
	}
	f.Status = StatusAccepted
	return f, nil
}

// Remove deletes a friendship or withdraws a request. Either end may remove.
func (s *Service) Remove(ctx context.Context, caller, friendshipID string) error {
	f, err := s.store.Get(ctx, friendshipID)
	if err != nil {
		return err
	}
	if f.Requester != caller && f.Target != caller {
		return fmt.Errorf("%w: friendship %s", ErrNotParticipant, friendshipID)
	}
	return s.store.Delete(ctx, friendshipID)
}

// Friends returns the ids of users linked to the given user by an accepted
// friendship.
func (s *Service) Friends(ctx context.Context, user string) ([]string, error) {
	all, err := s.store.ListByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	friends := []string{}
	for _, f := range all {
		if f.Status != StatusAccepted {
			continue
		}
		if f.Requester == user {
			friends = append(friends, f.Target)
		} else {
			friends = append(friends, f.Requester)
		}
	}
	return friends, nil
}

// Pending returns requests awaiting the user's acceptance.
func (s *Service) Pending(ctx context.Context, user string) ([]Friendship, error) {
	all, err := s.store.ListByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	pending := []Friendship{}
	for _, f := range all {
		if f.Status == StatusPending && f.Target == user {
			pending = append(pending, f)
		}
	}
	return pending, nil
}
