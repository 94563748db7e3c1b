package periodic

import "container/heap"

// event is one scheduled interval occurrence: due at unix timestamp
// `at`, recurring every `interval` seconds, running `action`.
type event struct {
	at, interval int64
	action       string
}

// eventHeap is a container/heap.Interface ordered by (at, interval),
// matching sched.py Event.__lt__'s tuple comparison (interval breaks
// ties between events due at the same instant).
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].interval < h[j].interval
}
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(*event)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Timer is a min-heap of recurring interval actions, pulled one due
// occurrence at a time via Next. Grounded on sched.py's Timer/Event,
// whose heappush/heappop/shift cycle this mirrors with container/heap.
type Timer struct {
	events eventHeap
}

// NewTimer constructs an empty Timer.
func NewTimer() *Timer {
	t := &Timer{}
	heap.Init(&t.events)
	return t
}

// Add schedules action to first run at the unix timestamp `at`, then
// every `interval` seconds thereafter.
func (t *Timer) Add(action string, at, interval int64) {
	heap.Push(&t.events, &event{at: at, interval: interval, action: action})
}

// Next pops the earliest-due event, reschedules it interval seconds
// later, and returns its due timestamp and action. Returns ok=false if
// no events are registered.
func (t *Timer) Next() (at int64, action string, ok bool) {
	if t.events.Len() == 0 {
		return 0, "", false
	}
	e := heap.Pop(&t.events).(*event)
	at, action = e.at, e.action
	e.at += e.interval
	heap.Push(&t.events, e)
	return at, action, true
}

// Len reports how many distinct recurring actions are registered.
func (t *Timer) Len() int { return t.events.Len() }
