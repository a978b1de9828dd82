package pg

import (
	"context"
	"database/sql"
	"errors"

	"lattice.social/internal/directory"
)

var _ directory.Store = (*Store)(nil)

func (s *Store) CreateUser(ctx context.Context, u directory.User, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, username, password_hash, created_at)
		values ($1, $2, $3, $4)
	`, u.ID, u.Username, passwordHash, u.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return directory.ErrUsernameTaken
		}
		return err
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (directory.User, error) {
	var u directory.User
	err := s.db.QueryRowContext(ctx, `
		select id, username, created_at from users where id = $1
	`, id).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.User{}, err
	}
	return u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (directory.User, error) {
	var u directory.User
	err := s.db.QueryRowContext(ctx, `
		select id, username, created_at from users where username = $1
	`, username).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, directory.ErrNotFound
	}
	if err != nil {
		return directory.User{}, err
	}
	return u, nil
}

func (s *Store) Credentials(ctx context.Context, username string) (directory.User, string, error) {
	var (
		u    directory.User
		hash string
	)
	err := s.db.QueryRowContext(ctx, `
		select id, username, password_hash, created_at from users where username = $1
	`, username).Scan(&u.ID, &u.Username, &hash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.User{}, "", directory.ErrNotFound
	}
	if err != nil {
		return directory.User{}, "", err
	}
	return u, hash, nil
}

// DeleteUser removes the directory entry. Denials, delegations and concept
// rows cascade through foreign keys, so no service-level purgers are wired
// in the Postgres deployment.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return directory.ErrNotFound
	}
	return nil
}
