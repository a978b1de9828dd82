package nudging

import (
	"context"
	"time"

	"lattice.social/internal/obs"
)

// Deliver is invoked for each due nudge. The HTTP wiring resolves user ids
// to usernames and publishes onto the activity stream.
type Deliver func(ctx context.Context, n Nudge)

// Scheduler polls for due nudges and hands them to the deliver callback.
type Scheduler struct {
	svc     *Service
	deliver Deliver
	every   time.Duration
}

// NewScheduler constructs a scheduler polling at the given cadence.
func NewScheduler(svc *Service, every time.Duration, deliver Deliver) *Scheduler {
	if every <= 0 {
		every = 30 * time.Second
	}
	return &Scheduler{svc: svc, deliver: deliver, every: every}
}

// Run polls until the context ends. Delivery failures are logged and do not
// stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now.UTC())
		}
	}
}

// Tick runs a single poll cycle. Exposed for tests.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.tick(ctx, now)
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	due, err := s.svc.CollectDue(ctx, now)
	if err != nil {
		obs.LogRequest(map[string]any{
			"level": "error",
			"msg":   "nudge poll failed",
			"error": err.Error(),
		})
		return
	}
	for _, n := range due {
		if s.deliver != nil {
			s.deliver(ctx, n)
		}
	}
}
