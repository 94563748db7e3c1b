package manager

import "context"

// SetResult lets a stateful (init_state-bearing) handler record its own
// result, since Process skips automatic keep_result recording for
// handlers that carry long-lived state (spec.md §4.4 step 4). A no-op
// if the task carries no keep_result.
func (c *Context) SetResult(ctx context.Context, value interface{}) error {
	if c.Task == nil || c.Task.KeepResult == nil {
		return nil
	}
	return c.Manager.recordResult(ctx, c.Task, resultRecord{Result: value})
}

// SetError lets a stateful handler record an explicit error result.
func (c *Context) SetError(ctx context.Context, errType, message, trace string) error {
	if c.Task == nil || c.Task.KeepResult == nil {
		return nil
	}
	return c.Manager.recordResult(ctx, c.Task, resultRecord{Error: errType, Message: message, Trace: trace})
}
