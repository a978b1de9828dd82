package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"lattice.social/internal/nudging"
)

func TestNudgeDueScansInterval(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("select id, sender_id, recipient_id, message, interval_seconds").
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "sender_id", "recipient_id", "message", "interval_seconds", "next_at", "delivered", "created_at",
		}).AddRow("n1", "alice", "bob", "stretch", int64(3600), now, false, now))

	due, err := s.Nudges().Due(context.Background(), now)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due nudge, got %d", len(due))
	}
	if due[0].Interval != time.Hour {
		t.Fatalf("interval not restored from seconds: %v", due[0].Interval)
	}
}

func TestNudgeRescheduleZeroRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("update nudges set next_at").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Nudges().Reschedule(context.Background(), "missing", time.Now().UTC())
	if !errors.Is(err, nudging.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
