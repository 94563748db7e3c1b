package periodic

import "testing"

func TestTimerInterleavesByDueTime(t *testing.T) {
	tm := NewTimer()
	tm.Add("foo", 10, 10)
	tm.Add("boo", 20, 20)
	tm.Add("bar", 30, 30)

	type occurrence struct {
		at     int64
		action string
	}
	want := []occurrence{
		{10, "foo"}, {20, "foo"}, {20, "boo"}, {30, "foo"},
		{30, "bar"}, {40, "foo"}, {40, "boo"}, {50, "foo"},
		{60, "foo"}, {60, "boo"}, {60, "bar"},
	}

	for i, w := range want {
		at, action, ok := tm.Next()
		if !ok {
			t.Fatalf("occurrence %d: Next() reported no events", i)
		}
		if at != w.at || action != w.action {
			t.Fatalf("occurrence %d: got (%d, %q), want (%d, %q)", i, at, action, w.at, w.action)
		}
	}
}

func TestTimerNextFalseWhenEmpty(t *testing.T) {
	tm := NewTimer()
	if _, _, ok := tm.Next(); ok {
		t.Fatal("expected Next() to report no events on an empty timer")
	}
}
