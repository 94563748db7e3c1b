package manager

import "errors"

// ErrStopWorker is returned by a handler (or surfaced by the worker's
// timeout enforcement) to request the executing worker terminate its
// pop loop, per spec.md §4.5/§4.4 step 5. Process never applies retry/
// dead-letter/keep_result policy to it — it propagates unconditionally.
var ErrStopWorker = errors.New("dsq: stop worker")

// ErrUnknownTask is returned by Process in sync mode when the task name
// has no registered handler (spec.md §4.4 step 2).
var ErrUnknownTask = errors.New("dsq: unknown task")
