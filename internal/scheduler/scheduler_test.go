package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/redis/go-redis/v9"
)

func TestRunBurstPromotesAndExits(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer s.Close()

	qs := store.NewQueueStore(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	ctx := context.Background()

	past := 100.0
	if err := qs.Push(ctx, "test", []byte("due"), &past); err != nil {
		t.Fatalf("Push: %v", err)
	}

	sch := New(qs, WithInterval(10*time.Millisecond), WithClock(func() time.Time { return time.Unix(200, 0) }))

	done := make(chan error, 1)
	go func() { done <- sch.Run(ctx, true) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("burst scheduler did not exit")
	}

	queue, body, err := qs.Pop(ctx, []string{"test"}, time.Second)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if queue != "test" || string(body) != "due" {
		t.Fatalf("expected promoted task, got %q %q", queue, body)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer s.Close()

	qs := store.NewQueueStore(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	sch := New(qs, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sch.Run(ctx, false) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancellation")
	}
}
