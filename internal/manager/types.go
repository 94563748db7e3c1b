// Package manager implements the Manager component from spec.md §4.4:
// the handler registry, push/pop/process contract, and retry/dead-letter/
// result-recording policy that ties QueueStore and ResultStore together.
package manager

import (
	"github.com/guido-cesarano/distributedq/internal/codec"
)

// PlainHandlerFunc is a registered handler that does not need per-call
// Context (no access to the manager, the raw task, or long-lived state).
type PlainHandlerFunc func(args []interface{}, kwargs map[string]interface{}) (interface{}, error)

// ContextHandlerFunc is a registered handler invoked with a Context
// carrying the manager, the task envelope, and (if the handler has an
// init_state) its long-lived per-task-name state.
type ContextHandlerFunc func(ctx *Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error)

// handlerKind distinguishes the two call conventions, matching the sum
// type suggested by spec.md §9 ("Plain(fn) | WithContext(fn, init?)")
// rather than runtime attribute probing.
type handlerKind int

const (
	handlerPlain handlerKind = iota
	handlerWithContext
)

type handlerEntry struct {
	kind      handlerKind
	plain     PlainHandlerFunc
	withCtx   ContextHandlerFunc
	initState func() interface{}
}

func (h *handlerEntry) hasState() bool {
	return h.initState != nil
}

// Context is the per-invocation argument passed to context-taking
// handlers: the manager (for nested pushes), the popped task envelope,
// and the handler's long-lived state, if any.
type Context struct {
	Manager *Manager
	Task    *codec.Envelope
	State   interface{}
}
