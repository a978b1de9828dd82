package pg

import (
	"context"
	"fmt"

	"lattice.social/internal/authz"
)

var _ authz.Store = (*Store)(nil)

func (s *Store) InsertDenial(ctx context.Context, d authz.Denial) error {
	_, err := s.db.ExecContext(ctx, `
		insert into denied_actions (id, user_id, action, created_at)
		values ($1, $2, $3, $4)
	`, d.ID, d.User, d.Action, d.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return authz.ErrAlreadyDenied
			case pgErrForeignKeyViolation:
				return fmt.Errorf("%w: unknown user %s", authz.ErrInvalidInput, d.User)
			}
		}
		return err
	}
	return nil
}

func (s *Store) DeleteDenial(ctx context.Context, user string, action authz.Action) error {
	res, err := s.db.ExecContext(ctx, `
		delete from denied_actions where user_id = $1 and action = $2
	`, user, action)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return authz.ErrAlreadyAllowed
	}
	return nil
}

func (s *Store) DenialExists(ctx context.Context, user string, action authz.Action) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists (select 1 from denied_actions where user_id = $1 and action = $2)
	`, user, action).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) DenialsByUser(ctx context.Context, user string) ([]authz.Denial, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, action, created_at
		from denied_actions
		where user_id = $1
		order by action
	`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []authz.Denial
	for rows.Next() {
		var d authz.Denial
		if err := rows.Scan(&d.ID, &d.User, &d.Action, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) InsertDelegation(ctx context.Context, d authz.Delegation) error {
	_, err := s.db.ExecContext(ctx, `
		insert into delegations (authorizer_id, authorizee_id, created_at)
		values ($1, $2, $3)
	`, d.Authorizer, d.Authorizee, d.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return authz.ErrDelegationExists
			case pgErrForeignKeyViolation:
				return fmt.Errorf("%w: unknown user", authz.ErrInvalidInput)
			}
		}
		return err
	}
	return nil
}

func (s *Store) DeleteDelegation(ctx context.Context, authorizer, authorizee string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from delegations where authorizer_id = $1 and authorizee_id = $2
	`, authorizer, authorizee)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return authz.ErrDelegationNotFound
	}
	return nil
}

func (s *Store) DelegationExists(ctx context.Context, authorizer, authorizee string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists (select 1 from delegations where authorizer_id = $1 and authorizee_id = $2)
	`, authorizer, authorizee).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) AuthorizeesOf(ctx context.Context, authorizer string) ([]string, error) {
	return s.delegationColumn(ctx, `
		select authorizee_id from delegations where authorizer_id = $1 order by authorizee_id
	`, authorizer)
}

func (s *Store) AuthorizersOf(ctx context.Context, authorizee string) ([]string, error) {
	return s.delegationColumn(ctx, `
		select authorizer_id from delegations where authorizee_id = $1 order by authorizer_id
	`, authorizee)
}

func (s *Store) delegationColumn(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
