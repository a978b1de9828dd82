package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lattice.social/internal/ids"
)

// Ledger is the authoritative source for "may user U perform action A" and
// for the delegate-control graph. Duplicate state transitions are strict
// errors: denying an already-denied pair fails with ErrAlreadyDenied and
// allowing a pair with no standing denial fails with ErrAlreadyAllowed.
//
// AssertAuthorizer followed by Deny/Allow is deliberately not serializable:
// a delegation revoked between the two calls still lets the in-flight
// mutation through. Acceptable for low-stakes permission toggling; callers
// must not rely on stronger guarantees.
type Ledger struct {
	store Store
	now   func() time.Time
}

// Option configures Ledger behavior.
type Option func(*Ledger)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(l *Ledger) {
		if fn != nil {
			l.now = fn
		}
	}
}

// NewLedger constructs a Ledger over the given store.
func NewLedger(store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("authz: store is required")
	}
	l := &Ledger{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Deny records that user may not perform action.
func (l *Ledger) Deny(ctx context.Context, user string, action Action) (Denial, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return Denial{}, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if !action.Valid() {
		return Denial{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	d := Denial{
		ID:        ids.New(),
		User:      user,
		Action:    action,
		CreatedAt: l.now().UTC(),
	}
	if err := l.store.InsertDenial(ctx, d); err != nil {
		return Denial{}, err
	}
	return d, nil
}

// Allow removes the standing denial for (user, action).
func (l *Ledger) Allow(ctx context.Context, user string, action Action) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if !action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	return l.store.DeleteDenial(ctx, user, action)
}

// IsAllowed reports whether the user may perform the action. Safe to call
// with no prior denial; absence of a record means allowed.
func (l *Ledger) IsAllowed(ctx context.Context, user string, action Action) (bool, error) {
	if !action.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	denied, err := l.store.DenialExists(ctx, user, action)
	if err != nil {
		return false, err
	}
	return !denied, nil
}

// AssertAllowed fails with a NotAuthorizedError when a denial stands for the
// pair. Callers must abort their operation on error; the guard is the
// enforcement point, not a fire-and-forget side effect.
func (l *Ledger) AssertAllowed(ctx context.Context, user string, action Action) error {
	ok, err := l.IsAllowed(ctx, user, action)
	if err != nil {
		return err
	}
	if !ok {
		return &NotAuthorizedError{User: user, Action: action}
	}
	return nil
}

// DeniedActions returns the currently denied actions for a user, sorted.
// Display only; enforcement goes through AssertAllowed.
func (l *Ledger) DeniedActions(ctx context.Context, user string) ([]Action, error) {
	denials, err := l.store.DenialsByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	actions := make([]Action, 0, len(denials))
	for _, d := range denials {
		actions = append(actions, d.Action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions, nil
}

// GrantControl creates a delegation edge letting authorizer administer the
// authorizee's denials.
func (l *Ledger) GrantControl(ctx context.Context, authorizer, authorizee string) (Delegation, error) {
	authorizer = strings.TrimSpace(authorizer)
	authorizee = strings.TrimSpace(authorizee)
	if authorizer == "" || authorizee == "" {
		return Delegation{}, fmt.Errorf("%w: authorizer and authorizee are required", ErrInvalidInput)
	}
	if authorizer == authorizee {
		return Delegation{}, fmt.Errorf("%w: cannot delegate control to oneself", ErrInvalidInput)
	}
	d := Delegation{
		Authorizer: authorizer,
		Authorizee: authorizee,
		CreatedAt:  l.now().UTC(),
	}
	if err := l.store.InsertDelegation(ctx, d); err != nil {
		return Delegation{}, err
	}
	return d, nil
}

// RevokeControl deletes the delegation edge.
func (l *Ledger) RevokeControl(ctx context.Context, authorizer, authorizee string) error {
	authorizer = strings.TrimSpace(authorizer)
	authorizee = strings.TrimSpace(authorizee)
	if authorizer == "" || authorizee == "" {
		return fmt.Errorf("%w: authorizer and authorizee are required", ErrInvalidInput)
	}
	return l.store.DeleteDelegation(ctx, authorizer, authorizee)
}

// AssertAuthorizer fails with a NotAuthorizerError unless the directed edge
// (authorizer, authorizee) exists. The reverse edge does not count.
func (l *Ledger) AssertAuthorizer(ctx context.Context, authorizer, authorizee string) error {
	ok, err := l.store.DelegationExists(ctx, authorizer, authorizee)
	if err != nil {
		return err
	}
	if !ok {
		return &NotAuthorizerError{Authorizer: authorizer, Authorizee: authorizee}
	}
	return nil
}

// Authorizees returns the users whose denials the authorizer may administer.
// An empty graph is a normal state, never an error.
func (l *Ledger) Authorizees(ctx context.Context, authorizer string) ([]string, error) {
	out, err := l.store.AuthorizeesOf(ctx, authorizer)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	sort.Strings(out)
	return out, nil
}

// Authorizers returns the users holding control over the authorizee.
func (l *Ledger) Authorizers(ctx context.Context, authorizee string) ([]string, error) {
	out, err := l.store.AuthorizersOf(ctx, authorizee)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	sort.Strings(out)
	return out, nil
}
