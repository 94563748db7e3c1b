package ratelimit

import "testing"

func TestAllowBurstThenThrottles(t *testing.T) {
	l := New(1, 2)

	if !l.Allow("send_email") {
		t.Fatal("expected first call to be allowed")
	}
	if !l.Allow("send_email") {
		t.Fatal("expected second call (within burst) to be allowed")
	}
	if l.Allow("send_email") {
		t.Fatal("expected third call to be throttled")
	}
}

func TestAllowIsPerTaskName(t *testing.T) {
	l := New(1, 1)

	if !l.Allow("a") {
		t.Fatal("expected task a to be allowed")
	}
	if !l.Allow("b") {
		t.Fatal("expected task b to have its own independent bucket")
	}
	if l.Allow("a") {
		t.Fatal("expected task a's bucket to be exhausted")
	}
}
