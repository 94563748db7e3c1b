package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/guido-cesarano/distributedq/internal/codec"
)

// PushDefaults are the push-time defaults a Task binding remembers, per
// spec.md §4.4's `task(name, queue, ...)` builder.
type PushDefaults struct {
	Queue      string
	Meta       map[string]interface{}
	TTL        *time.Duration
	Delay      *time.Duration
	Dead       *string
	Retry      *codec.Retry
	RetryDelay *time.Duration
	Timeout    *time.Duration
	KeepResult *time.Duration
}

// Task is a binding remembering defaults for later Push calls and
// exposing a direct, in-process Call of the registered handler.
type Task struct {
	manager  *Manager
	name     string
	defaults PushDefaults
}

// Task returns a binding for the given registered task name and
// defaults. Registration itself happens via RegisterPlain/
// RegisterWithContext; Task only remembers push defaults and the name.
func (m *Manager) Task(name string, defaults PushDefaults) *Task {
	return &Task{manager: m, name: name, defaults: defaults}
}

// Override is a functional option applied on top of a Task binding's
// remembered defaults for a single Push call.
type Override func(*PushOptions)

// Push enqueues (or, in sync mode, immediately executes) an invocation
// of this task's handler with the given args/kwargs, merging any
// per-call overrides on top of the binding's remembered defaults.
func (t *Task) Push(ctx context.Context, args []interface{}, kwargs map[string]interface{}, overrides ...Override) (*Result, error) {
	opts := PushOptions{
		Queue:      t.defaults.Queue,
		Name:       t.name,
		Args:       args,
		Kwargs:     kwargs,
		Meta:       t.defaults.Meta,
		TTL:        t.defaults.TTL,
		Delay:      t.defaults.Delay,
		Dead:       t.defaults.Dead,
		Retry:      t.defaults.Retry,
		RetryDelay: t.defaults.RetryDelay,
		Timeout:    t.defaults.Timeout,
		KeepResult: t.defaults.KeepResult,
	}
	for _, o := range overrides {
		o(&opts)
	}
	return t.manager.Push(ctx, opts)
}

// Call invokes the registered handler directly, in-process, bypassing
// the queue entirely.
func (t *Task) Call(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	entry, ok := t.manager.lookup(t.name)
	if !ok {
		return nil, fmt.Errorf("manager: task %q not registered", t.name)
	}
	if entry.kind == handlerWithContext {
		dctx := &Context{Manager: t.manager, State: t.manager.stateFor(t.name, entry)}
		return entry.withCtx(dctx, args, kwargs)
	}
	return entry.plain(args, kwargs)
}

// WithQueue overrides the push queue for a single call.
func WithQueue(queue string) Override { return func(o *PushOptions) { o.Queue = queue } }

// WithETA overrides the push eta for a single call.
func WithETA(eta time.Time) Override { return func(o *PushOptions) { o.ETA = &eta } }

// WithDelay overrides the push delay for a single call.
func WithDelay(d time.Duration) Override { return func(o *PushOptions) { o.Delay = &d } }

// WithTTL overrides the push ttl for a single call.
func WithTTL(d time.Duration) Override { return func(o *PushOptions) { o.TTL = &d } }
