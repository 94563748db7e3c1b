package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/guido-cesarano/distributedq/internal/codec"
	"github.com/guido-cesarano/distributedq/internal/manager"
	"github.com/guido-cesarano/distributedq/internal/metrics"
	"github.com/guido-cesarano/distributedq/internal/ratelimit"
	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
)

func retryPtr(n int) *codec.Retry { return codec.RetryInt(n) }
func durPtr(seconds int64) *time.Duration {
	d := time.Duration(seconds) * time.Second
	return &d
}

func newTestWorker(t *testing.T) (*miniredis.Miniredis, *manager.Manager, *Worker) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	m := manager.New(store.NewQueueStore(rdb), store.NewResultStore(rdb))
	w := New(m)
	return s, m, w
}

func TestProcessBurstStopsOnEmptyQueue(t *testing.T) {
	s, m, w := newTestWorker(t)
	defer s.Close()
	ctx := context.Background()

	processed := 0
	m.RegisterPlain("noop", func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		processed++
		return nil, nil
	})

	if _, err := m.Push(ctx, manager.PushOptions{Queue: "test", Name: "noop"}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := m.Push(ctx, manager.PushOptions{Queue: "test", Name: "noop"}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Process(ctx, []string{"test"}, true) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("burst worker did not exit")
	}

	if processed != 2 {
		t.Fatalf("expected 2 tasks processed, got %d", processed)
	}
}

func TestProcessTimeoutStopsWorker(t *testing.T) {
	s, m, w := newTestWorker(t)
	defer s.Close()
	ctx := context.Background()
	w.taskTimeout = 50 * time.Millisecond

	m.RegisterPlain("slow", func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		time.Sleep(500 * time.Millisecond)
		return nil, nil
	})

	if _, err := m.Push(ctx, manager.PushOptions{Queue: "test", Name: "slow"}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Process(ctx, []string{"test"}, false) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop after task timeout")
	}
}

func TestProcessRetriesOnHandlerError(t *testing.T) {
	s, m, w := newTestWorker(t)
	defer s.Close()
	ctx := context.Background()

	attempts := 0
	m.RegisterPlain("flaky", func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	})

	zero := int64(0)
	if _, err := m.Push(ctx, manager.PushOptions{
		Queue: "test", Name: "flaky",
		Retry: retryPtr(1), RetryDelay: durPtr(zero),
	}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Process(ctx, []string{"test"}, true) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("burst worker did not exit")
	}

	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestProcessRequeuesThrottledTask(t *testing.T) {
	s, m, _ := newTestWorker(t)
	defer s.Close()
	ctx := context.Background()

	attempts := 0
	m.RegisterPlain("noop", func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		attempts++
		return nil, nil
	})

	// Zero burst/rate: every call is throttled, so the task is pushed
	// back for its queue with a 1s delay instead of executing.
	limiter := ratelimit.New(0, 0)
	w := New(m, WithRateLimiter(limiter))

	if _, err := m.Push(ctx, manager.PushOptions{Queue: "test", Name: "noop"}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	popCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Process(popCtx, []string{"test"}, false) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop with parent context")
	}

	if attempts != 0 {
		t.Fatalf("expected throttled task never to execute, got %d attempts", attempts)
	}

	// The requeued task waits in the schedule set until its eta; promote
	// it before looking for it on its queue.
	qs := store.NewQueueStore(redis.NewClient(&redis.Options{Addr: s.Addr()}))
	if _, err := qs.Reschedule(ctx, float64(time.Now().Add(2*time.Second).Unix())); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	task, popErr := m.Pop(ctx, []string{"test"}, time.Second)
	if popErr != nil {
		t.Fatalf("Pop: %v", popErr)
	}
	if task == nil {
		t.Fatal("expected requeued task still present on queue")
	}
	if task.Name != "noop" {
		t.Fatalf("expected requeued noop task, got %q", task.Name)
	}
}

func TestProcessRecordsMetrics(t *testing.T) {
	s, m, _ := newTestWorker(t)
	defer s.Close()
	ctx := context.Background()

	m.RegisterPlain("noop", func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return nil, nil
	})

	reg := metrics.New(prometheus.NewRegistry())
	w := New(m, WithMetrics(reg))

	if _, err := m.Push(ctx, manager.PushOptions{Queue: "test", Name: "noop"}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Process(ctx, []string{"test"}, true) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("burst worker did not exit")
	}

	var metric dto.Metric
	if err := reg.Processed.WithLabelValues("success", "noop").Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Fatalf("expected 1 processed success, got %v", metric.Counter.GetValue())
	}
}
