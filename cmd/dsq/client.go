package main

import (
	"github.com/guido-cesarano/distributedq/internal/config"
	"github.com/guido-cesarano/distributedq/internal/manager"
	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/redis/go-redis/v9"
)

// newRedisClient opens a go-redis client against addr, matching the
// teacher's queue.NewClient("host:port") single-address convention.
func newRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// buildManager wires a Manager against cfg's queue/result Redis
// addresses, applying the default-queue/unknown-queue/retry-delay
// settings every dsq process shares.
func buildManager(cfg *config.Config, opts ...manager.Option) (*manager.Manager, *store.QueueStore) {
	qdb := newRedisClient(cfg.QueueRedisAddr)
	rdb := newRedisClient(cfg.ResultRedisAddr)

	queues := store.NewQueueStore(qdb)
	results := store.NewResultStore(rdb)

	base := []manager.Option{
		manager.WithUnknownQueue(cfg.UnknownQueue),
		manager.WithDefaultQueue(cfg.DefaultQueue),
		manager.WithDefaultRetryDelay(secondsToDuration(cfg.DefaultRetryDly)),
	}
	m := manager.New(queues, results, append(base, opts...)...)
	return m, queues
}
