package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lattice.social/internal/friending"
)

// FriendshipStore implements friending.Store.
type FriendshipStore struct {
	db *sql.DB
}

func (s *Store) Friendships() *FriendshipStore { return &FriendshipStore{db: s.db} }

var _ friending.Store = (*FriendshipStore)(nil)

func (s *FriendshipStore) Insert(ctx context.Context, f friending.Friendship) error {
	_, err := s.db.ExecContext(ctx, `
		insert into friendships (id, requester_id, target_id, status, created_at)
		values ($1, $2, $3, $4, $5)
	`, f.ID, f.Requester, f.Target, f.Status, f.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return friending.ErrAlreadyLinked
			case pgErrForeignKeyViolation:
				return fmt.Errorf("%w: unknown requester or target", friending.ErrInvalidInput)
			}
		}
		return err
	}
	return nil
}

func (s *FriendshipStore) Get(ctx context.Context, id string) (friending.Friendship, error) {
	var f friending.Friendship
	err := s.db.QueryRowContext(ctx, `
		select id, requester_id, target_id, status, created_at
		from friendships where id = $1
	`, id).Scan(&f.ID, &f.Requester, &f.Target, &f.Status, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return friending.Friendship{}, friending.ErrNotFound
	}
	if err != nil {
		return friending.Friendship{}, err
	}
	return f, nil
}

func (s *FriendshipStore) FindBetween(ctx context.Context, a, b string) (friending.Friendship, error) {
	var f friending.Friendship
	err := s.db.QueryRowContext(ctx, `
		select id, requester_id, target_id, status, created_at
		from friendships
		where (requester_id = $1 and target_id = $2)
		   or (requester_id = $2 and target_id = $1)
	`, a, b).Scan(&f.ID, &f.Requester, &f.Target, &f.Status, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return friending.Friendship{}, friending.ErrNotFound
	}
	if err != nil {
		return friending.Friendship{}, err
	}
	return f, nil
}

func (s *FriendshipStore) ListByUser(ctx context.Context, user string) ([]friending.Friendship, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, requester_id, target_id, status, created_at
		from friendships
		where requester_id = $1 or target_id = $1
		order by created_at desc, id desc
	`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []friending.Friendship
	for rows.Next() {
		var f friending.Friendship
		if err := rows.Scan(&f.ID, &f.Requester, &f.Target, &f.Status, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *FriendshipStore) SetStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `
		update friendships set status = $2 where id = $1
	`, id, status)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return friending.ErrNotFound
	}
	return nil
}

func (s *FriendshipStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from friendships where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return friending.ErrNotFound
	}
	return nil
}
