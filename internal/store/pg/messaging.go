package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lattice.social/internal/messaging"
)

// MessageStore implements messaging.Store.
type MessageStore struct {
	db *sql.DB
}

func (s *Store) Messages() *MessageStore { return &MessageStore{db: s.db} }

var _ messaging.Store = (*MessageStore)(nil)

func (s *MessageStore) Insert(ctx context.Context, m messaging.Message) error {
	_, err := s.db.ExecContext(ctx, `
		insert into messages (id, sender_id, recipient_id, content, sent_at)
		values ($1, $2, $3, $4, $5)
	`, m.ID, m.Sender, m.Recipient, m.Content, m.SentAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: unknown sender or recipient", messaging.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *MessageStore) Get(ctx context.Context, id string) (messaging.Message, error) {
	var m messaging.Message
	err := s.db.QueryRowContext(ctx, `
		select id, sender_id, recipient_id, content, sent_at from messages where id = $1
	`, id).Scan(&m.ID, &m.Sender, &m.Recipient, &m.Content, &m.SentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return messaging.Message{}, messaging.ErrNotFound
	}
	if err != nil {
		return messaging.Message{}, err
	}
	return m, nil
}

func (s *MessageStore) Inbox(ctx context.Context, recipient string) ([]messaging.Message, error) {
	return s.scanMessages(s.db.QueryContext(ctx, `
		select id, sender_id, recipient_id, content, sent_at
		from messages
		where recipient_id = $1
		order by sent_at desc, id desc
	`, recipient))
}

func (s *MessageStore) Conversation(ctx context.Context, a, b string) ([]messaging.Message, error) {
	return s.scanMessages(s.db.QueryContext(ctx, `
		select id, sender_id, recipient_id, content, sent_at
		from messages
		where (sender_id = $1 and recipient_id = $2)
		   or (sender_id = $2 and recipient_id = $1)
		order by sent_at asc, id asc
	`, a, b))
}

func (s *MessageStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from messages where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return messaging.ErrNotFound
	}
	return nil
}

func (s *MessageStore) scanMessages(rows *sql.Rows, err error) ([]messaging.Message, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []messaging.Message
	for rows.Next() {
		var m messaging.Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.Recipient, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
