package directory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"lattice.social/internal/ids"
)

var (
	ErrNotFound           = errors.New("directory: user not found")
	ErrUsernameTaken      = errors.New("directory: username already taken")
	ErrInvalidCredentials = errors.New("directory: invalid credentials")
	ErrInvalidInput       = errors.New("directory: invalid input")
)

var usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// User is a directory entry. The directory resolves usernames to opaque ids
// and back for presentation; it is never consulted for authorization.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Store describes persistence operations for the user directory.
type Store interface {
	CreateUser(ctx context.Context, u User, passwordHash string) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	Credentials(ctx context.Context, username string) (User, string, error)
	DeleteUser(ctx context.Context, id string) error
}

// Purger removes records referencing a deleted user. The Postgres schema
// cascades via foreign keys; in-memory stores register themselves here so
// dev mode behaves the same way.
type Purger interface {
	PurgeUser(ctx context.Context, userID string) error
}

// Service provides registration, authentication and id/username resolution.
type Service struct {
	store   Store
	hasher  PasswordHasher
	purgers []Purger
	now     func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithPurgers registers cascade hooks executed on user deletion.
func WithPurgers(purgers ...Purger) Option {
	return func(s *Service) {
		s.purgers = append(s.purgers, purgers...)
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithHasher overrides the password hasher (tests swap in a cheap one).
func WithHasher(h PasswordHasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

// NewService constructs the directory service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("directory: store is required")
	}
	s := &Service{store: store, hasher: bcryptHasher{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a new user with a hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if !usernameRe.MatchString(username) {
		return User{}, fmt.Errorf("%w: username must match %s", ErrInvalidInput, usernameRe)
	}
	if len(password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{ID: ids.New(), Username: username, CreatedAt: s.now().UTC()}
	if err := s.store.CreateUser(ctx, u, hash); err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	u, hash, err := s.store.Credentials(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := s.hasher.Verify(hash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Resolve maps a username to its opaque id.
func (s *Service) Resolve(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" {
		return "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	u, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// Lookup maps an opaque id back to a username for display.
func (s *Service) Lookup(ctx context.Context, id string) (string, error) {
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// LookupAll resolves a set of ids to usernames, preserving order. Ids that no
// longer resolve are skipped rather than failing the whole response.
func (s *Service) LookupAll(ctx context.Context, userIDs []string) ([]string, error) {
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		name, err := s.Lookup(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

// Delete removes the user and sweeps dependent records through the
// registered purgers.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	for _, p := range s.purgers {
		if err := p.PurgeUser(ctx, id); err != nil {
			return fmt.Errorf("cascade delete for user %s: %w", id, err)
		}
	}
	return nil
}
