package periodic

import (
	"context"
	"time"

	"github.com/guido-cesarano/distributedq/internal/manager"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Periodic drives both scheduling primitives against a Manager: named
// crontab entries dispatch through a robfig/cron/v3 runtime (grounded on
// the teacher's pkg/queue/client.go Schedule/StartCronScheduler use of
// cron.Cron), with Crontab's field-intersection matching substituted in
// as a custom cron.Schedule; named interval entries dispatch through a
// dedicated goroutine pulling from a Timer.
type Periodic struct {
	manager *manager.Manager
	crontab *Crontab
	timer   *Timer
	cron    *cron.Cron
	log     zerolog.Logger
	clock   func() time.Time

	timerStop chan struct{}
}

// Option configures a Periodic at construction time.
type Option func(*Periodic)

// WithLogger overrides the zerolog logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Periodic) { p.log = log }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(p *Periodic) { p.clock = clock }
}

// New constructs a Periodic bound to a Manager. Crontab/Timer entries
// are registered via AddCrontab/AddInterval before Start.
func New(m *manager.Manager, opts ...Option) *Periodic {
	p := &Periodic{
		manager:   m,
		crontab:   NewCrontab(),
		timer:     NewTimer(),
		cron:      cron.New(cron.WithSeconds()),
		clock:     time.Now,
		timerStop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddCrontab registers a wall-clock crontab entry: taskName is pushed
// (with no args) whenever its minute/hour/day/month/weekday fields
// match the current instant.
func (p *Periodic) AddCrontab(taskName string, opts ...AddOption) {
	p.crontab.Add(taskName, opts...)
	p.cron.Schedule(crontabSchedule{crontab: p.crontab, action: taskName}, cron.FuncJob(func() {
		p.dispatch(taskName)
	}))
}

// AddInterval registers a recurring interval entry: taskName is pushed
// first at unix timestamp `at`, then every `interval` seconds after.
func (p *Periodic) AddInterval(taskName string, at, interval int64) {
	p.timer.Add(taskName, at, interval)
}

// Start begins both the crontab runtime and, if any interval entries
// are registered, the timer dispatch goroutine. Call Stop to halt both.
func (p *Periodic) Start(ctx context.Context) {
	p.cron.Start()
	if p.timer.Len() > 0 {
		go p.runTimer(ctx)
	}
}

// Stop halts the crontab runtime and timer goroutine, blocking until
// any in-flight cron job finishes.
func (p *Periodic) Stop() {
	<-p.cron.Stop().Done()
	close(p.timerStop)
}

func (p *Periodic) runTimer(ctx context.Context) {
	for {
		at, action, ok := p.timer.Next()
		if !ok {
			return
		}
		due := time.Unix(at, 0)
		wait := time.Until(due)
		if wait < 0 {
			wait = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-p.timerStop:
			return
		case <-time.After(wait):
			p.dispatch(action)
		}
	}
}

func (p *Periodic) dispatch(taskName string) {
	ctx := context.Background()
	if _, err := p.manager.Task(taskName, manager.PushDefaults{}).Push(ctx, nil, nil); err != nil {
		p.log.Error().Err(err).Str("task", taskName).Msg("periodic dispatch failed")
	}
}

// crontabSchedule adapts Crontab's minute-resolution matching to
// robfig/cron/v3's cron.Schedule interface, so the crontab's own field
// semantics (step-from-min, explicit sets) drive the same scheduling
// runtime the teacher uses for standard cron expressions.
type crontabSchedule struct {
	crontab *Crontab
	action  string
}

// Next returns the first whole-minute instant strictly after t at which
// action is due, bounded to one year out.
func (s crontabSchedule) Next(t time.Time) time.Time {
	next := t.Truncate(time.Minute).Add(time.Minute)
	limit := next.Add(366 * 24 * time.Hour)
	for next.Before(limit) {
		if _, due := s.crontab.ActionsAt(next)[s.action]; due {
			return next
		}
		next = next.Add(time.Minute)
	}
	return next
}
