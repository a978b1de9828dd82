package authz

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAction      = errors.New("authz: unrecognized action")
	ErrAlreadyDenied      = errors.New("authz: action already denied")
	ErrAlreadyAllowed     = errors.New("authz: action already allowed")
	ErrNotAuthorized      = errors.New("authz: action not allowed")
	ErrNotAnAuthorizer    = errors.New("authz: not an authorizer")
	ErrDelegationExists   = errors.New("authz: delegation already exists")
	ErrDelegationNotFound = errors.New("authz: delegation not found")
	ErrInvalidInput       = errors.New("authz: invalid input")
)

// NotAuthorizedError carries the (user, action) pair that failed the check so
// the boundary layer can render it with a display name.
type NotAuthorizedError struct {
	User   string
	Action Action
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("user %s is not allowed to perform %s", e.User, e.Action)
}

func (e *NotAuthorizedError) Is(target error) bool { return target == ErrNotAuthorized }

// NotAuthorizerError carries the delegation pair that failed AssertAuthorizer.
type NotAuthorizerError struct {
	Authorizer string
	Authorizee string
}

func (e *NotAuthorizerError) Error() string {
	return fmt.Sprintf("user %s has no control over user %s", e.Authorizer, e.Authorizee)
}

func (e *NotAuthorizerError) Is(target error) bool { return target == ErrNotAnAuthorizer }
