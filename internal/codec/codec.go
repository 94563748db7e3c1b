// Package codec implements the dsq wire format: a msgpack-encoded task
// envelope with explicit binary/text distinction and absent-vs-nil
// optional fields, as required by spec.md §3/§4.1 and the original
// dsq/manager.py and dsq/store.py `dumps`/`loads` calls.
package codec

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Retry carries either "retry forever" (Infinite) or a remaining
// integer retry budget. A zero-value Retry with Set==false means "no
// retry requested" (absent on the wire).
type Retry struct {
	Set      bool
	Infinite bool
	Count    int
}

// Envelope is the task invocation record pushed to a queue or schedule,
// popped by a worker, and re-pushed on retry/dead-letter. Fields are
// pointers or zero-value-comparable where the wire format must
// distinguish "absent" from "present but zero/empty" (Expire, Timeout,
// KeepResult, RetryDelay, Dead).
type Envelope struct {
	ID         string                 `msgpack:"id" json:"id"`
	Name       string                 `msgpack:"name" json:"name"`
	Queue      string                 `msgpack:"queue,omitempty" json:"queue,omitempty"`
	Args       []interface{}          `msgpack:"args,omitempty" json:"args,omitempty"`
	Kwargs     map[string]interface{} `msgpack:"kwargs,omitempty" json:"kwargs,omitempty"`
	Meta       map[string]interface{} `msgpack:"meta,omitempty" json:"meta,omitempty"`
	Expire     *int64                 `msgpack:"expire,omitempty" json:"expire,omitempty"`
	Dead       *string                `msgpack:"dead,omitempty" json:"dead,omitempty"`
	Retry      *Retry                 `msgpack:"-" json:"retry,omitempty"`
	RetryRaw   interface{}            `msgpack:"retry,omitempty" json:"-"`
	RetryDelay *int64                 `msgpack:"retry_delay,omitempty" json:"retry_delay,omitempty"`
	Timeout    *int64                 `msgpack:"timeout,omitempty" json:"timeout,omitempty"`
	KeepResult *int64                 `msgpack:"keep_result,omitempty" json:"keep_result,omitempty"`
}

// Encode serializes an envelope to its msgpack wire form with
// msgpack.Marshal's default options, under which byte slices encode as
// bin and text strings as str, so they round-trip distinctly (dsq's
// `use_bin_type=True` contract).
func Encode(e *Envelope) ([]byte, error) {
	e.RetryRaw = retryToRaw(e.Retry)
	return msgpack.Marshal(e)
}

// Decode parses a msgpack-encoded envelope body.
func Decode(body []byte) (*Envelope, error) {
	var e Envelope
	if err := msgpack.Unmarshal(body, &e); err != nil {
		return nil, err
	}
	e.Retry = retryFromRaw(e.RetryRaw)
	return &e, nil
}

func retryToRaw(r *Retry) interface{} {
	if r == nil || !r.Set {
		return nil
	}
	if r.Infinite {
		return true
	}
	return int64(r.Count)
}

func retryFromRaw(raw interface{}) *Retry {
	switch v := raw.(type) {
	case nil:
		return nil
	case bool:
		return &Retry{Set: true, Infinite: v}
	case int64:
		return &Retry{Set: true, Count: int(v)}
	case int8:
		return &Retry{Set: true, Count: int(v)}
	case int16:
		return &Retry{Set: true, Count: int(v)}
	case int32:
		return &Retry{Set: true, Count: int(v)}
	case uint8:
		return &Retry{Set: true, Count: int(v)}
	case uint16:
		return &Retry{Set: true, Count: int(v)}
	case uint32:
		return &Retry{Set: true, Count: int(v)}
	case uint64:
		return &Retry{Set: true, Count: int(v)}
	case int:
		return &Retry{Set: true, Count: v}
	case float64:
		return &Retry{Set: true, Count: int(v)}
	default:
		return nil
	}
}

// RetryFromWire builds a Retry from an already-decoded JSON/msgpack
// value (bool for infinite, any integer type or float64 for a count),
// as received over the HTTP ingress. Returns nil for an absent/nil
// value, matching the wire "no retry requested" contract.
func RetryFromWire(v interface{}) *Retry {
	return retryFromRaw(v)
}

// RetryInt returns a Retry carrying a finite remaining-count budget.
func RetryInt(n int) *Retry {
	return &Retry{Set: true, Count: n}
}

// RetryForever returns a Retry carrying the infinite-retry marker.
func RetryForever() *Retry {
	return &Retry{Set: true, Infinite: true}
}

// Int64Ptr is a small helper for constructing optional int64 fields.
func Int64Ptr(v int64) *int64 { return &v }

// StringPtr is a small helper for constructing optional string fields.
func StringPtr(v string) *string { return &v }
