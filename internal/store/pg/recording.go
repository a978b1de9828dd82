package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lattice.social/internal/recording"
)

// RecordStore implements recording.Store.
type RecordStore struct {
	db *sql.DB
}

func (s *Store) Records() *RecordStore { return &RecordStore{db: s.db} }

var _ recording.Store = (*RecordStore)(nil)

func (s *RecordStore) Insert(ctx context.Context, r recording.Record) error {
	_, err := s.db.ExecContext(ctx, `
		insert into records (id, recorder_id, activity, note, recorded_at)
		values ($1, $2, $3, $4, $5)
	`, r.ID, r.Recorder, r.Activity, r.Note, r.RecordedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fmt.Errorf("%w: unknown recorder %s", recording.ErrInvalidInput, r.Recorder)
		}
		return err
	}
	return nil
}

func (s *RecordStore) Get(ctx context.Context, id string) (recording.Record, error) {
	var r recording.Record
	err := s.db.QueryRowContext(ctx, `
		select id, recorder_id, activity, note, recorded_at from records where id = $1
	`, id).Scan(&r.ID, &r.Recorder, &r.Activity, &r.Note, &r.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return recording.Record{}, recording.ErrNotFound
	}
	if err != nil {
		return recording.Record{}, err
	}
	return r, nil
}

func (s *RecordStore) ListByRecorder(ctx context.Context, recorder string) ([]recording.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, recorder_id, activity, note, recorded_at
		from records
		where recorder_id = $1
		order by recorded_at desc, id desc
	`, recorder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []recording.Record
	for rows.Next() {
		var r recording.Record
		if err := rows.Scan(&r.ID, &r.Recorder, &r.Activity, &r.Note, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RecordStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from records where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return recording.ErrNotFound
	}
	return nil
}
