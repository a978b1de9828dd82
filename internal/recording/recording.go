package recording

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lattice.social/internal/ids"
)

var (
	ErrNotFound     = errors.New("recording: record not found")
	ErrNotRecorder  = errors.New("recording: caller is not the recorder")
	ErrInvalidInput = errors.New("recording: invalid input")
)

// Record is a personal activity entry owned by its recorder.
type Record struct {
	ID         string    `json:"id"`
	Recorder   string    `json:"recorder"`
	Activity   string    `json:"activity"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store describes persistence operations for records.
type Store interface {
	Insert(ctx context.Context, r Record) error
	Get(ctx context.Context, id string) (Record, error)
	ListByRecorder(ctx context.Context, recorder string) ([]Record, error)
	Delete(ctx context.Context, id string) error
}

// Service owns the record collection and its ownership checks.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("recording: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// Create inserts a record for the given recorder.
func (s *Service) Create(ctx context.Context, recorder, activity, note string) (Record, error) {
	recorder = strings.TrimSpace(recorder)
	if recorder == "" {
		return Record{}, fmt.Errorf("%w: recorder is required", ErrInvalidInput)
	}
	activity = strings.TrimSpace(activity)
	if activity == "" {
		return Record{}, fmt.Errorf("%w: activity is required", ErrInvalidInput)
	}
	r := Record{
		ID:         ids.New(),
		Recorder:   recorder,
		Activity:   activity,
		Note:       strings.TrimSpace(note),
		RecordedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// ListByRecorder returns the user's own records, newest first.
func (s *Service) ListByRecorder(ctx context.Context, recorder string) ([]Record, error) {
	return s.store.ListByRecorder(ctx, recorder)
}

// AssertRecorder fails with ErrNotRecorder unless the caller owns the record.
func (s *Service) AssertRecorder(ctx context.Context, caller, recordID string) error {
	r, err := s.store.Get(ctx, recordID)
	if err != nil {
		return err
	}
	if r.Recorder != caller {
		return fmt.Errorf("%w: record %s", ErrNotRecorder, recordID)
	}
	return nil
}

// Delete removes a record after verifying ownership.
func (s *Service) Delete(ctx context.Context, caller, recordID string) error {
	if err := s.AssertRecorder(ctx, caller, recordID); err != nil {
		return err
	}
	return s.store.Delete(ctx, recordID)
}
