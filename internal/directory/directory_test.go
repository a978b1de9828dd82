package directory

import (
	"context"
	"errors"
	"testing"
)

// plainHasher avoids bcrypt cost in tests.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }
func (plainHasher) Verify(hash, password string) error {
	if hash != "plain:"+password {
		return errors.New("mismatch")
	}
	return nil
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithHasher(plainHasher{})}, opts...)
	s, err := NewService(NewMemory(), opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	u, err := s.Register(ctx, "  Alice_01  ", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Username != "alice_01" {
		t.Fatalf("username not normalized: %q", u.Username)
	}
	if u.ID == "" {
		t.Fatalf("missing user id")
	}

	got, err := s.Authenticate(ctx, "alice_01", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated wrong user: %s", got.ID)
	}
	if _, err := s.Authenticate(ctx, "alice_01", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "ghost", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user must map to ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "long enough"},
		{"bad characters", "has space", "long enough"},
		{"short password", "valid_name", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Register(ctx, tc.username, tc.password); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	if _, err := s.Register(ctx, "alice", "password1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := s.Register(ctx, "ALICE", "password2"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestResolveAndLookup(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t)

	u, err := s.Register(ctx, "bob", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	id, err := s.Resolve(ctx, "bob")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != u.ID {
		t.Fatalf("Resolve returned %s, want %s", id, u.ID)
	}
	name, err := s.Lookup(ctx, u.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if name != "bob" {
		t.Fatalf("Lookup returned %q", name)
	}
	if _, err := s.Resolve(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type recordingPurger struct{ purged []string }

func (p *recordingPurger) PurgeUser(ctx context.Context, userID string) error {
	p.purged = append(p.purged, userID)
	return nil
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	purger := &recordingPurger{}
	s := newTestService(t, WithPurgers(purger))

	u, err := s.Register(ctx, "bob", "password1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(purger.purged) != 1 || purger.purged[0] != u.ID {
		t.Fatalf("purger not invoked: %v", purger.purged)
	}
	if _, err := s.Lookup(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("user still resolvable after delete: %v", err)
	}
}
