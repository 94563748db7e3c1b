// Package worker implements the pop loop described in spec.md §4.5:
// blocking pop across a priority-ordered queue list, per-task timeout
// enforcement, worker lifetime jitter, and graceful SIGINT/SIGTERM
// shutdown. Grounded on the teacher's cmd/worker/main.go startWorker
// loop shape (signal channel + context cancellation, select loop).
//
// spec.md's reference implementation enforces per-task timeout with a
// POSIX SIGALRM that unwinds the running handler. Go has no portable
// equivalent — you cannot safely interrupt an arbitrary running
// goroutine from a signal handler. Instead, Process runs in its own
// goroutine and is raced against a context.WithTimeout; on expiry the
// worker logs the stalled task and returns ErrStopWorker exactly as the
// alarm handler would, terminating the pop loop. The goroutine itself
// is abandoned (not killed), which is the same "task lost, worker
// expected to be restarted by a supervisor" contract spec.md documents
// for the alarm-based design (see SPEC_FULL.md Open Question).
package worker

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/guido-cesarano/distributedq/internal/codec"
	"github.com/guido-cesarano/distributedq/internal/manager"
	"github.com/guido-cesarano/distributedq/internal/metrics"
	"github.com/guido-cesarano/distributedq/internal/ratelimit"
	"github.com/rs/zerolog"
)

// Worker owns a Manager and runs its pop loop until told to stop.
type Worker struct {
	manager     *manager.Manager
	lifetime    time.Duration
	taskTimeout time.Duration
	limiter     *ratelimit.Limiter
	metrics     *metrics.Registry
	log         zerolog.Logger

	mu          sync.Mutex
	currentTask *codec.Envelope
}

// Option configures a Worker at construction time.
type Option func(*Worker)

// WithLifetime sets the worker's maximum run time before it exits its
// pop loop. The actual bound applied is uniformly jittered up by 0–10%,
// matching spec.md §4.5 (`random.randint(lifetime, lifetime + lifetime//10)`).
func WithLifetime(d time.Duration) Option {
	return func(w *Worker) {
		if d <= 0 {
			w.lifetime = 0
			return
		}
		extra := time.Duration(rand.Int63n(int64(d)/10 + 1))
		w.lifetime = d + extra
	}
}

// WithTaskTimeout sets the default per-task execution deadline, used
// when a popped task carries no explicit timeout field.
func WithTaskTimeout(d time.Duration) Option {
	return func(w *Worker) { w.taskTimeout = d }
}

// WithLogger overrides the zerolog logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Worker) { w.log = log }
}

// WithRateLimiter installs a per-task-name throughput guard. A task
// that exceeds its limiter is pushed back onto its queue with a short
// delay rather than executed, per spec.md §7's rate-limiting note.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(w *Worker) { w.limiter = l }
}

// WithMetrics installs a metrics.Registry so every processed task
// updates the processed-total counter and task-duration histogram.
func WithMetrics(reg *metrics.Registry) Option {
	return func(w *Worker) { w.metrics = reg }
}

// New constructs a Worker bound to the given Manager.
func New(m *manager.Manager, opts ...Option) *Worker {
	w := &Worker{manager: m}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// CurrentTask returns the task currently being processed, or nil.
func (w *Worker) CurrentTask() *codec.Envelope {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentTask
}

func (w *Worker) setCurrentTask(task *codec.Envelope) {
	w.mu.Lock()
	w.currentTask = task
	w.mu.Unlock()
}

// Process runs the pop loop against the given priority-ordered queue
// list until: a StopWorker is raised (timeout or handler request), the
// lifetime elapses, burst mode finds an empty queue, or SIGINT/SIGTERM
// is received (drains the in-flight iteration then exits).
func (w *Worker) Process(ctx context.Context, queues []string, burst bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var stopped atomic.Bool
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		task, err := w.manager.Pop(ctx, queues, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error().Err(err).Msg("pop failed")
			continue
		}

		if task == nil {
			if burst {
				return nil
			}
			continue
		}

		if w.limiter != nil && !w.limiter.Allow(task.Name) {
			if err := w.manager.Requeue(ctx, task, time.Second); err != nil {
				w.log.Error().Err(err).Str("task", taskFmt(task)).Msg("requeue after rate limit failed")
			}
			continue
		}

		if err := w.processOne(ctx, task); err != nil {
			if err == manager.ErrStopWorker {
				stopped.Store(true)
			}
		}

		if stopped.Load() {
			return nil
		}

		if w.lifetime > 0 && time.Since(start) > w.lifetime {
			return nil
		}
	}
}

func (w *Worker) processOne(ctx context.Context, task *codec.Envelope) error {
	w.setCurrentTask(task)
	defer w.setCurrentTask(nil)

	timeout := w.taskTimeout
	if task.Timeout != nil {
		timeout = time.Duration(*task.Timeout) * time.Second
	}

	w.log.Info().Str("task", taskFmt(task)).Msg("executing task")

	start := time.Now()
	var err error
	if timeout <= 0 {
		_, err = w.manager.Process(ctx, task, start, true)
	} else {
		err = w.processWithTimeout(ctx, task, timeout)
	}

	w.recordMetrics(task, start, err)
	return err
}

func (w *Worker) recordMetrics(task *codec.Envelope, start time.Time, err error) {
	if w.metrics == nil {
		return
	}
	w.metrics.TaskDuration.WithLabelValues(task.Name).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	w.metrics.Processed.WithLabelValues(status, task.Name).Inc()
}

func (w *Worker) processWithTimeout(ctx context.Context, task *codec.Envelope, timeout time.Duration) error {
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := w.manager.Process(ctx, task, time.Now(), true)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-deadlineCtx.Done():
		w.log.Error().Str("task", taskFmt(task)).Msg("timeout during task processing")
		return manager.ErrStopWorker
	}
}

// taskFmt renders a task the way the worker logs it: name(args,kwargs)#id.
func taskFmt(task *codec.Envelope) string {
	if task == nil {
		return "__no_task__"
	}
	parts := make([]string, 0, len(task.Args)+len(task.Kwargs))
	for _, a := range task.Args {
		parts = append(parts, fmt.Sprintf("%v", a))
	}
	for k, v := range task.Kwargs {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return fmt.Sprintf("%s(%s)#%s", task.Name, strings.Join(parts, ", "), task.ID)
}

// RunUntilSignal is a small convenience used by cmd/dsq to block until
// the process receives SIGINT/SIGTERM, for commands (scheduler,
// forwarder) whose only loop condition is "run until asked to stop".
func RunUntilSignal() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
