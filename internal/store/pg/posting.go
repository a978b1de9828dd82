package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lattice.social/internal/posting"
)

// PostStore implements posting.Store.
type PostStore struct {
	db *sql.DB
}

func (s *Store) Posts() *PostStore { return &PostStore{db: s.db} }

var _ posting.Store = (*PostStore)(nil)

func (s *PostStore) Insert(ctx context.Context, p posting.Post) error {
	_, err := s.db.ExecContext(ctx, `
		insert into posts (id, author_id, content, created_at)
		values ($1, $2, $3, $4)
	`, p.ID, p.Author, p.Content, p.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: unknown author %s", posting.ErrInvalidInput, p.Author)
		}
		return err
	}
	return nil
}

func (s *PostStore) Get(ctx context.Context, id string) (posting.Post, error) {
	var p posting.Post
	err := s.db.QueryRowContext(ctx, `
		select id, author_id, content, created_at from posts where id = $1
	`, id).Scan(&p.ID, &p.Author, &p.Content, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return posting.Post{}, posting.ErrNotFound
	}
	if err != nil {
		return posting.Post{}, err
	}
	return p, nil
}

func (s *PostStore) ListByAuthor(ctx context.Context, author string) ([]posting.Post, error) {
	return s.scanPosts(s.db.QueryContext(ctx, `
		select id, author_id, content, created_at
		from posts
		where author_id = $1
		order by created_at desc, id desc
	`, author))
}

func (s *PostStore) ListRecent(ctx context.Context, limit int) ([]posting.Post, error) {
	return s.scanPosts(s.db.QueryContext(ctx, `
		select id, author_id, content, created_at
		from posts
		order by created_at desc, id desc
		limit $1
	`, limit))
}

func (s *PostStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from posts where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return posting.ErrNotFound
	}
	return nil
}

func (s *PostStore) scanPosts(rows *sql.Rows, err error) ([]posting.Post, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []posting.Post
	for rows.Next() {
		var p posting.Post
		if err := rows.Scan(&p.ID, &p.Author, &p.Content, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
