package manager

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/guido-cesarano/distributedq/internal/codec"
	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Manager ties QueueStore and ResultStore together: handler registry,
// push/pop/process, and the retry/dead-letter/result-recording policy
// described in spec.md §4.4.
type Manager struct {
	queues  *store.QueueStore
	results *store.ResultStore

	sync              bool
	unknownQueue      string
	defaultQueue      string
	defaultRetryDelay time.Duration
	clock             func() time.Time
	log               zerolog.Logger

	mu       sync.Mutex
	registry map[string]*handlerEntry
	states   map[string]interface{}
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithSync makes Push execute the task inline via Process instead of
// enqueueing it, per spec.md §4.4.
func WithSync(sync bool) Option {
	return func(m *Manager) { m.sync = sync }
}

// WithUnknownQueue overrides the default "unknown" parking queue name.
func WithUnknownQueue(name string) Option {
	return func(m *Manager) { m.unknownQueue = name }
}

// WithDefaultQueue overrides the default "dsq" push queue name.
func WithDefaultQueue(name string) Option {
	return func(m *Manager) { m.defaultQueue = name }
}

// WithDefaultRetryDelay overrides the default 60s retry delay applied
// when a retried task carries no explicit retry_delay.
func WithDefaultRetryDelay(d time.Duration) Option {
	return func(m *Manager) { m.defaultRetryDelay = d }
}

// WithLogger overrides the zerolog logger used for process-failure and
// unknown-task logging.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithClock overrides time.Now for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) { m.clock = clock }
}

// New constructs a Manager bound to the given stores.
func New(queues *store.QueueStore, results *store.ResultStore, opts ...Option) *Manager {
	m := &Manager{
		queues:            queues,
		results:           results,
		unknownQueue:      "unknown",
		defaultQueue:      "dsq",
		defaultRetryDelay: 60 * time.Second,
		clock:             time.Now,
		registry:          make(map[string]*handlerEntry),
		states:            make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterPlain registers a handler that ignores Context.
func (m *Manager) RegisterPlain(name string, fn PlainHandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = &handlerEntry{kind: handlerPlain, plain: fn}
}

// RegisterWithContext registers a handler that receives a Context.
// initState, if non-nil, is invoked at most once per task name to seed
// long-lived state (implying with_context, per spec.md §4.4).
func (m *Manager) RegisterWithContext(name string, fn ContextHandlerFunc, initState func() interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = &handlerEntry{kind: handlerWithContext, withCtx: fn, initState: initState}
}

func (m *Manager) lookup(name string) (*handlerEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.registry[name]
	return e, ok
}

func (m *Manager) stateFor(name string, entry *handlerEntry) interface{} {
	if !entry.hasState() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[name]; ok {
		return s
	}
	s := entry.initState()
	m.states[name] = s
	return s
}

// PushOptions mirrors Manager.push's parameters from spec.md §4.4.
type PushOptions struct {
	Queue      string
	Name       string
	Args       []interface{}
	Kwargs     map[string]interface{}
	Meta       map[string]interface{}
	TTL        *time.Duration
	ETA        *time.Time
	Delay      *time.Duration
	Dead       *string
	Retry      *codec.Retry
	RetryDelay *time.Duration
	Timeout    *time.Duration
	KeepResult *time.Duration
}

// Push builds a task envelope and either executes it immediately (sync
// mode) or persists it to the QueueStore (ready or scheduled,
// depending on ETA/Delay), returning a Result handle.
func (m *Manager) Push(ctx context.Context, opts PushOptions) (*Result, error) {
	queue := opts.Queue
	if queue == "" {
		queue = m.defaultQueue
	}
	if err := store.ValidateQueueName(queue); err != nil {
		return nil, err
	}

	id, err := codec.NewID()
	if err != nil {
		return nil, fmt.Errorf("manager: generate task id: %w", err)
	}

	now := m.clock()

	env := &codec.Envelope{
		ID:     id,
		Name:   opts.Name,
		Args:   opts.Args,
		Kwargs: opts.Kwargs,
		Meta:   opts.Meta,
		Dead:   opts.Dead,
		Retry:  opts.Retry,
	}
	if opts.TTL != nil {
		exp := now.Add(*opts.TTL).Unix()
		env.Expire = &exp
	}
	if opts.RetryDelay != nil {
		rd := int64(opts.RetryDelay.Seconds())
		env.RetryDelay = &rd
	}
	if opts.Timeout != nil {
		t := int64(opts.Timeout.Seconds())
		env.Timeout = &t
	}
	if opts.KeepResult != nil {
		kr := int64(opts.KeepResult.Seconds())
		env.KeepResult = &kr
	}

	if m.sync {
		env.Queue = queue
		value, procErr := m.Process(ctx, env, now, true)
		res := &Result{manager: m, id: id, ready: true, value: value}
		if procErr != nil {
			res.errType = fmt.Sprintf("%T", procErr)
			res.errMessage = procErr.Error()
		}
		return res, procErr
	}

	var eta *float64
	if opts.ETA != nil {
		e := float64(opts.ETA.Unix())
		eta = &e
	} else if opts.Delay != nil {
		e := float64(now.Add(*opts.Delay).Unix())
		eta = &e
	}

	body, err := codec.Encode(env)
	if err != nil {
		return nil, fmt.Errorf("manager: encode task: %w", err)
	}

	if err := m.queues.Push(ctx, queue, body, eta); err != nil {
		return nil, err
	}

	return &Result{manager: m, id: id}, nil
}

// Pop pops the next available task from the given queues in priority
// order, attaching the queue it was popped from.
func (m *Manager) Pop(ctx context.Context, queues []string, timeout time.Duration) (*codec.Envelope, error) {
	queue, body, err := m.queues.Pop(ctx, queues, timeout)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	env, err := codec.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("manager: decode task: %w", err)
	}
	env.Queue = queue
	return env, nil
}

// Requeue re-encodes and pushes a popped task back onto its own queue,
// visible again after delay. Used by the worker to defer a task that
// exceeded its rate limit without touching its retry/expire bookkeeping.
func (m *Manager) Requeue(ctx context.Context, task *codec.Envelope, delay time.Duration) error {
	body, err := codec.Encode(task)
	if err != nil {
		return fmt.Errorf("manager: encode task: %w", err)
	}
	var eta *float64
	if delay > 0 {
		v := float64(m.clock().Add(delay).Unix())
		eta = &v
	}
	return m.queues.Push(ctx, task.Queue, body, eta)
}

// Process executes a popped task's handler and applies the expire/
// unknown-routing/retry/dead-letter/result-recording policy from
// spec.md §4.4.
func (m *Manager) Process(ctx context.Context, task *codec.Envelope, now time.Time, logExc bool) (interface{}, error) {
	if task.Expire != nil && now.Unix() > *task.Expire {
		return nil, nil
	}

	entry, ok := m.lookup(task.Name)
	if !ok {
		if m.sync {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task.Name)
		}
		body, err := codec.Encode(task)
		if err != nil {
			return nil, fmt.Errorf("manager: encode unknown task: %w", err)
		}
		if err := m.queues.Push(ctx, m.unknownQueue, body, nil); err != nil {
			return nil, err
		}
		m.log.Warn().Str("task", taskFmt(task)).Msg("routed unknown task")
		return nil, nil
	}

	state := m.stateFor(task.Name, entry)
	dctx := &Context{Manager: m, Task: task, State: state}

	var value interface{}
	var err error
	if entry.kind == handlerWithContext {
		value, err = entry.withCtx(dctx, task.Args, task.Kwargs)
	} else {
		value, err = entry.plain(task.Args, task.Kwargs)
	}

	if err == nil {
		if task.KeepResult != nil && !entry.hasState() {
			if recErr := m.recordResult(ctx, task, resultRecord{Result: value}); recErr != nil {
				return value, recErr
			}
		}
		return value, nil
	}

	if errors.Is(err, ErrStopWorker) {
		return nil, err
	}

	if m.sync {
		return nil, err
	}

	if logExc {
		m.log.Error().Err(err).Str("task", taskFmt(task)).Msg("task failed")
	}

	if task.Retry != nil && task.Retry.Set && (task.Retry.Infinite || task.Retry.Count > 0) {
		if pushErr := m.retryTask(ctx, task, now); pushErr != nil {
			return nil, pushErr
		}
		return nil, err
	} else if task.Dead != nil && *task.Dead != "" {
		if pushErr := m.deadLetterTask(ctx, task); pushErr != nil {
			return nil, pushErr
		}
	}

	if task.KeepResult != nil {
		trace := string(debug.Stack())
		rec := resultRecord{Error: fmt.Sprintf("%T", err), Message: err.Error(), Trace: trace}
		if recErr := m.recordResult(ctx, task, rec); recErr != nil {
			return nil, recErr
		}
	}

	return nil, err
}

func (m *Manager) retryTask(ctx context.Context, task *codec.Envelope, now time.Time) error {
	retry := task.Retry
	newRetry := retry
	if !retry.Infinite {
		newRetry = codec.RetryInt(retry.Count - 1)
	}

	delay := m.defaultRetryDelay
	if task.RetryDelay != nil {
		delay = time.Duration(*task.RetryDelay) * time.Second
	}

	var eta *float64
	if delay > 0 {
		e := float64(now.Add(delay).Unix())
		eta = &e
	}

	retryTask := *task
	retryTask.Retry = newRetry
	body, err := codec.Encode(&retryTask)
	if err != nil {
		return fmt.Errorf("manager: encode retried task: %w", err)
	}
	return m.queues.Push(ctx, task.Queue, body, eta)
}

func (m *Manager) deadLetterTask(ctx context.Context, task *codec.Envelope) error {
	deadTask := *task
	deadTask.Retry = nil
	deadTask.RetryDelay = nil
	body, err := codec.Encode(&deadTask)
	if err != nil {
		return fmt.Errorf("manager: encode dead-lettered task: %w", err)
	}
	return m.queues.Push(ctx, *task.Dead, body, nil)
}

func (m *Manager) recordResult(ctx context.Context, task *codec.Envelope, rec resultRecord) error {
	body, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("manager: encode result: %w", err)
	}
	ttl := time.Duration(*task.KeepResult) * time.Second
	return m.results.Set(ctx, task.ID, body, ttl)
}
