package metrics

import (
	"context"
	"time"

	"github.com/guido-cesarano/distributedq/internal/store"
)

// CollectQueueDepths periodically polls QueueStore.Stat and updates the
// QueueDepth gauge, until ctx is cancelled. Grounded on the teacher's
// cmd/worker/main.go collectQueueMetrics ticker goroutine.
func CollectQueueDepths(ctx context.Context, queues *store.QueueStore, reg *Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat, err := queues.Stat(ctx)
			if err != nil {
				continue
			}
			for queue, depth := range stat.QueueDepths {
				reg.QueueDepth.WithLabelValues(queue).Set(float64(depth))
			}
		}
	}
}
