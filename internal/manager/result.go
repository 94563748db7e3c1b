package manager

import (
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Result is a handle returned by Push: either already Ready (sync mode)
// or pollable via Ready against the ResultStore, per spec.md §4.4.
type Result struct {
	manager *Manager

	id    string
	ready bool

	value      interface{}
	errType    string
	errMessage string
}

// ID returns the task id this Result refers to.
func (r *Result) ID() string { return r.id }

// Ready reports whether a result record exists yet, polling the
// ResultStore at the given interval until either a record appears or
// timeout elapses (timeout == 0 polls exactly once, matching a
// synchronous check).
func (r *Result) Ready(ctx context.Context, timeout, interval time.Duration) (bool, error) {
	if r.ready {
		return true, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		body, err := r.manager.results.Get(ctx, r.id)
		if err != nil {
			return false, err
		}
		if body != nil {
			var rec resultRecord
			if err := msgpack.Unmarshal(body, &rec); err != nil {
				return false, err
			}
			if rec.Error != "" {
				r.errType = rec.Error
				r.errMessage = rec.Message
			} else {
				r.value = rec.Result
			}
			r.ready = true
			return true, nil
		}

		if timeout <= 0 || time.Now().After(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Value returns the recorded success value. Only meaningful once Ready
// reports true and Failed reports false.
func (r *Result) Value() interface{} { return r.value }

// Failed reports whether the recorded outcome was an error.
func (r *Result) Failed() bool { return r.errType != "" }

// Error returns the recorded error's type name and message.
func (r *Result) Error() (errType, message string) { return r.errType, r.errMessage }

// ResultRecord is the decoded shape of a stored task outcome, exposed
// for the HTTP ingress's GET /result handler (spec.md §6;
// original_source/dsq/http.py's `Application.result`).
type ResultRecord struct {
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Trace   string      `json:"trace,omitempty"`
}

// FetchResult reads and decodes a task's stored outcome, if any. The
// bool return is false when no record exists yet for id.
func (m *Manager) FetchResult(ctx context.Context, id string) (*ResultRecord, bool, error) {
	body, err := m.results.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if body == nil {
		return nil, false, nil
	}
	var rec resultRecord
	if err := msgpack.Unmarshal(body, &rec); err != nil {
		return nil, false, err
	}
	return &ResultRecord{Result: rec.Result, Error: rec.Error, Message: rec.Message, Trace: rec.Trace}, true, nil
}
