// Package scheduler implements the promotion loop from spec.md §4.6: a
// thin 1-second loop calling QueueStore.Reschedule, with a burst mode
// that exits once the schedule set is empty. Grounded on the teacher's
// Client.StartScheduler ticker loop shape.
package scheduler

import (
	"context"
	"time"

	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/rs/zerolog"
)

// Scheduler periodically promotes due schedule entries into their
// ready queues.
type Scheduler struct {
	queues   *store.QueueStore
	interval time.Duration
	log      zerolog.Logger
	clock    func() time.Time
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithInterval overrides the default 1-second promotion interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithLogger overrides the zerolog logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// New constructs a Scheduler bound to a QueueStore.
func New(queues *store.QueueStore, opts ...Option) *Scheduler {
	s := &Scheduler{queues: queues, interval: time.Second, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run promotes due schedule entries every interval until ctx is
// cancelled. In burst mode it exits as soon as Reschedule reports zero
// items remain in the schedule set.
//
// Running multiple Scheduler instances concurrently is safe: promotion
// is idempotent because Reschedule reads and removes the due members in
// one MULTI/EXEC transaction, so each due member reaches exactly one
// caller.
func (s *Scheduler) Run(ctx context.Context, burst bool) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		remaining, err := s.queues.Reschedule(ctx, float64(s.clock().Unix()))
		if err != nil {
			s.log.Error().Err(err).Msg("reschedule failed")
		} else if burst && remaining == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
