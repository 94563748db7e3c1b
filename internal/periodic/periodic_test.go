package periodic

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/guido-cesarano/distributedq/internal/manager"
	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/redis/go-redis/v9"
)

func TestIntervalDispatchPushesTask(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	defer s.Close()

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	m := manager.New(store.NewQueueStore(rdb), store.NewResultStore(rdb))

	var mu sync.Mutex
	fired := 0
	m.RegisterPlain("heartbeat", func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		mu.Lock()
		fired++
		mu.Unlock()
		return nil, nil
	})

	p := New(m)
	now := time.Now().Unix()
	p.AddInterval("heartbeat", now, 1)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer func() {
		cancel()
		p.Stop()
	}()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		task, err := m.Pop(ctx, []string{"dsq"}, 100*time.Millisecond)
		if err != nil {
			t.Fatalf("Pop: %v", err)
		}
		if task != nil {
			if task.Name != "heartbeat" {
				t.Fatalf("expected heartbeat task, got %q", task.Name)
			}
			return
		}
	}
	t.Fatal("interval entry never dispatched a task")
}
