package forwarder

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/redis/go-redis/v9"
)

func newStore(t *testing.T) (*miniredis.Miniredis, *store.QueueStore) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	return s, store.NewQueueStore(redis.NewClient(&redis.Options{Addr: s.Addr()}))
}

func TestRunDrainsSourceIntoDestination(t *testing.T) {
	srcRedis, src := newStore(t)
	defer srcRedis.Close()
	dstRedis, dst := newStore(t)
	defer dstRedis.Close()

	ctx := context.Background()
	if err := src.Push(ctx, "test", []byte("one"), nil); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := src.Push(ctx, "test", []byte("two"), nil); err != nil {
		t.Fatalf("Push: %v", err)
	}

	f := New(src, dst, WithInterval(10*time.Millisecond), WithBatchSize(10))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- f.Run(runCtx) }()

	deadline := time.After(2 * time.Second)
	for {
		queue, body, err := dst.Pop(ctx, []string{"test"}, 200*time.Millisecond)
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if body != nil {
			if queue != "test" || (string(body) != "one" && string(body) != "two") {
				t.Fatalf("unexpected forwarded item: %q %q", queue, body)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("forwarder never drained source into destination")
		default:
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not stop on cancellation")
	}
}

func TestRunRestoresBatchToSourceOnDestinationFailure(t *testing.T) {
	srcRedis, src := newStore(t)
	defer srcRedis.Close()

	ctx := context.Background()
	if err := src.Push(ctx, "test", []byte("one"), nil); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := src.Push(ctx, "test", []byte("two"), nil); err != nil {
		t.Fatalf("Push: %v", err)
	}

	// A QueueStore pointed at an address nobody listens on: PutMany
	// fails with a connection error, exercising the put-back recovery
	// path instead of the success path every other test covers.
	brokenDst := store.NewQueueStore(redis.NewClient(&redis.Options{
		Addr:       "127.0.0.1:1",
		MaxRetries: -1,
	}))

	f := New(src, brokenDst, WithBatchSize(10))

	if err := f.Run(ctx); err == nil {
		t.Fatal("expected Run to return an error when the destination put fails")
	}

	items, err := src.GetQueue(ctx, "test", 0, 10)
	if err != nil {
		t.Fatalf("GetQueue: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected both items restored to source, got %d: %v", len(items), items)
	}
	got := map[string]bool{string(items[0]): true, string(items[1]): true}
	if !got["one"] || !got["two"] {
		t.Fatalf("unexpected restored items: %v", items)
	}
}

func TestRunIdlesWhenSourceEmpty(t *testing.T) {
	srcRedis, src := newStore(t)
	defer srcRedis.Close()
	dstRedis, dst := newStore(t)
	defer dstRedis.Close()

	f := New(src, dst, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not stop on cancellation while idle")
	}
}
