package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lattice.social/internal/nudging"
)

// NudgeStore implements nudging.Store. Intervals are stored as whole
// seconds in interval_seconds.
type NudgeStore struct {
	db *sql.DB
}

func (s *Store) Nudges() *NudgeStore { return &NudgeStore{db: s.db} }

var _ nudging.Store = (*NudgeStore)(nil)

func (s *NudgeStore) Insert(ctx context.Context, n nudging.Nudge) error {
	_, err := s.db.ExecContext(ctx, `
		insert into nudges (id, sender_id, recipient_id, message, interval_seconds, next_at, delivered, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.Sender, n.Recipient, n.Message, int64(n.Interval/time.Second), n.NextAt, n.Delivered, n.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: unknown sender or recipient", nudging.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *NudgeStore) Get(ctx context.Context, id string) (nudging.Nudge, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, sender_id, recipient_id, message, interval_seconds, next_at, delivered, created_at
		from nudges where id = $1
	`, id)
	n, err := scanNudge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nudging.Nudge{}, nudging.ErrNotFound
	}
	return n, err
}

func (s *NudgeStore) ListBySender(ctx context.Context, sender string) ([]nudging.Nudge, error) {
	return s.scanNudges(s.db.QueryContext(ctx, `
		select id, sender_id, recipient_id, message, interval_seconds, next_at, delivered, created_at
		from nudges
		where sender_id = $1
		order by next_at asc, id asc
	`, sender))
}

func (s *NudgeStore) ListByRecipient(ctx context.Context, recipient string) ([]nudging.Nudge, error) {
	return s.scanNudges(s.db.QueryContext(ctx, `
		select id, sender_id, recipient_id, message, interval_seconds, next_at, delivered, created_at
		from nudges
		where recipient_id = $1
		order by next_at asc, id asc
	`, recipient))
}

func (s *NudgeStore) Due(ctx context.Context, now time.Time) ([]nudging.Nudge, error) {
	return s.scanNudges(s.db.QueryContext(ctx, `
		select id, sender_id, recipient_id, message, interval_seconds, next_at, delivered, created_at
		from nudges
		where delivered = false and next_at <= $1
		order by next_at asc, id asc
	`, now))
}

func (s *NudgeStore) MarkDelivered(ctx context.Context, id string) error {
	return s.touch(ctx, `update nudges set delivered = true where id = $1`, id)
}

func (s *NudgeStore) Reschedule(ctx context.Context, id string, nextAt time.Time) error {
	return s.touch(ctx, `update nudges set next_at = $2 where id = $1`, id, nextAt)
}

func (s *NudgeStore) Delete(ctx context.Context, id string) error {
	return s.touch(ctx, `delete from nudges where id = $1`, id)
}

func (s *NudgeStore) touch(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return nudging.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNudge(row rowScanner) (nudging.Nudge, error) {
	var (
		n    nudging.Nudge
		secs int64
	)
	err := row.Scan(&n.ID, &n.Sender, &n.Recipient, &n.Message, &secs, &n.NextAt, &n.Delivered, &n.CreatedAt)
	if err != nil {
		return nudging.Nudge{}, err
	}
	n.Interval = time.Duration(secs) * time.Second
	return n, nil
}

func (s *NudgeStore) scanNudges(rows *sql.Rows, err error) ([]nudging.Nudge, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []nudging.Nudge
	for rows.Next() {
		n, err := scanNudge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
