package periodic

import "time"

// ActionsAt is Actions decomposed from a wall-clock instant, matching
// sched.py's Crontab.actions_ts: Go's Weekday is Sunday=0..Saturday=6,
// translated to ISO weekday (Monday=1..Sunday=7) before lookup.
func (c *Crontab) ActionsAt(t time.Time) map[string]struct{} {
	wday := int(t.Weekday())
	if wday == 0 {
		wday = 7
	}
	return c.Actions(t.Minute(), t.Hour(), t.Day(), int(t.Month()), wday)
}
