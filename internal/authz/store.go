package authz

import "context"

// Store describes persistence operations required by the permission ledger.
// Implementations must enforce the single-record invariants: InsertDenial
// fails with ErrAlreadyDenied on a duplicate (user, action) pair and
// InsertDelegation fails with ErrDelegationExists on a duplicate ordered
// pair. Each operation is a single atomic store round trip.
type Store interface {
	InsertDenial(ctx context.Context, d Denial) error
	DeleteDenial(ctx context.Context, user string, action Action) error
	DenialExists(ctx context.Context, user string, action Action) (bool, error)
	DenialsByUser(ctx context.Context, user string) ([]Denial, error)

	InsertDelegation(ctx context.Context, d Delegation) error
	DeleteDelegation(ctx context.Context, authorizer, authorizee string) error
	DelegationExists(ctx context.Context, authorizer, authorizee string) (bool, error)
	AuthorizeesOf(ctx context.Context, authorizer string) ([]string, error)
	AuthorizersOf(ctx context.Context, authorizee string) ([]string, error)
}
