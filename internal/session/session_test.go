package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIssueAndValidate(t *testing.T) {
	t.Setenv("LATTICE_SESSION_SECRET", "test-secret")
	ResetSecretForTests()

	token, err := Issue("user-42", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	userID, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if userID != "user-42" {
		t.Fatalf("unexpected subject: %s", userID)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	t.Setenv("LATTICE_SESSION_SECRET", "test-secret")
	ResetSecretForTests()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	t.Setenv("LATTICE_SESSION_SECRET", "secret-one")
	ResetSecretForTests()
	token, err := Issue("user-42", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	t.Setenv("LATTICE_SESSION_SECRET", "secret-two")
	ResetSecretForTests()
	if _, err := ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken across secrets, got %v", err)
	}
}

func TestIssueRequiresSecret(t *testing.T) {
	t.Setenv("LATTICE_SESSION_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := Issue("user-42", time.Hour); err == nil {
		t.Fatalf("expected error without configured secret")
	}
}

func TestUserContextRoundTrip(t *testing.T) {
	ctx := ContextWithUser(context.Background(), "user-42")
	userID, ok := UserFromContext(ctx)
	if !ok || userID != "user-42" {
		t.Fatalf("context round trip failed: %q %v", userID, ok)
	}
	if _, ok := UserFromContext(context.Background()); ok {
		t.Fatalf("empty context must not carry a user")
	}
}
