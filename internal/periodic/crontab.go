// Package periodic implements the wall-clock scheduling primitives from
// spec.md §4.8: a five-field Crontab matcher (point, every-N-from-min,
// and explicit-set specs per field) and an interval Timer. Grounded on
// original_source/dsq/sched.py's Crontab/Timer/Event/get_points.
package periodic

import "fmt"

// fieldSpec holds one Add call's per-field point specifications, each
// defaulting to -1 ("every value in range"), matching sched.py's
// Crontab.add keyword defaults.
type fieldSpec struct {
	minute, hour, day, month, wday interface{}
}

// AddOption sets one field of a Crontab entry. A field left unset
// matches every value in its range, per spec.md §4.8.
type AddOption func(*fieldSpec)

// Minute restricts the entry to a single minute (0-59), a negative
// "every N minutes starting at 0" step, or an explicit []int set.
func Minute(v interface{}) AddOption { return func(f *fieldSpec) { f.minute = v } }

// Hour restricts the entry to a single hour (0-23), a step, or a set.
func Hour(v interface{}) AddOption { return func(f *fieldSpec) { f.hour = v } }

// Day restricts the entry to a single day-of-month (1-31), a step, or a set.
func Day(v interface{}) AddOption { return func(f *fieldSpec) { f.day = v } }

// Month restricts the entry to a single month (1-12), a step, or a set.
func Month(v interface{}) AddOption { return func(f *fieldSpec) { f.month = v } }

// Weekday restricts the entry to a single ISO weekday (1=Monday..7=Sunday,
// with 0 also accepted as an alias for Sunday), a step, or a set.
func Weekday(v interface{}) AddOption { return func(f *fieldSpec) { f.wday = v } }

// Crontab is a set of named actions, each due on an intersection of
// minute/hour/day/month/weekday point sets. Distinct from a standard
// five-field cron expression: any field may be an "every N starting at
// its range minimum" step (encoded as a negative int) instead of a
// single value or explicit set.
type Crontab struct {
	minutes map[int]map[string]struct{}
	hours   map[int]map[string]struct{}
	days    map[int]map[string]struct{}
	months  map[int]map[string]struct{}
	wdays   map[int]map[string]struct{}
}

// NewCrontab constructs an empty Crontab.
func NewCrontab() *Crontab {
	return &Crontab{
		minutes: map[int]map[string]struct{}{},
		hours:   map[int]map[string]struct{}{},
		days:    map[int]map[string]struct{}{},
		months:  map[int]map[string]struct{}{},
		wdays:   map[int]map[string]struct{}{},
	}
}

// getPoints expands a point spec into the concrete set of values it
// matches within [min, max]. A negative int is a step: every min+k*step
// value up to max. A non-negative int is a single value. A []int is an
// explicit set, used verbatim.
func getPoints(desc interface{}, min, max int) []int {
	switch v := desc.(type) {
	case nil:
		return getPoints(-1, min, max)
	case []int:
		return v
	case int:
		if v < 0 {
			step := -v
			pts := make([]int, 0, (max-min)/step+1)
			for p := min; p <= max; p += step {
				pts = append(pts, p)
			}
			return pts
		}
		return []int{v}
	default:
		panic(fmt.Sprintf("periodic: unsupported point spec %T", desc))
	}
}

func updateSet(m map[int]map[string]struct{}, action string, points []int) {
	for _, p := range points {
		if m[p] == nil {
			m[p] = map[string]struct{}{}
		}
		m[p][action] = struct{}{}
	}
}

// Add registers action as due at the intersection of the given fields.
// Any field omitted matches every value in its range.
func (c *Crontab) Add(action string, opts ...AddOption) {
	f := fieldSpec{minute: -1, hour: -1, day: -1, month: -1, wday: -1}
	for _, opt := range opts {
		opt(&f)
	}

	updateSet(c.minutes, action, getPoints(f.minute, 0, 59))
	updateSet(c.hours, action, getPoints(f.hour, 0, 23))
	updateSet(c.days, action, getPoints(f.day, 1, 31))
	updateSet(c.months, action, getPoints(f.month, 1, 12))

	wpoints := getPoints(f.wday, 1, 7)
	for i, p := range wpoints {
		if p == 0 {
			wpoints[i] = 7
		}
	}
	updateSet(c.wdays, action, wpoints)
}

// Actions returns the set of actions due at the given field values, as
// the intersection of each field's registered action sets.
func (c *Crontab) Actions(minute, hour, day, month, wday int) map[string]struct{} {
	sets := []map[string]struct{}{
		c.minutes[minute], c.hours[hour], c.days[day], c.months[month], c.wdays[wday],
	}
	for _, s := range sets {
		if len(s) == 0 {
			return map[string]struct{}{}
		}
	}

	result := map[string]struct{}{}
	for action := range sets[0] {
		inAll := true
		for _, s := range sets[1:] {
			if _, ok := s[action]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			result[action] = struct{}{}
		}
	}
	return result
}
