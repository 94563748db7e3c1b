// Package store implements the durable queue and result storage layer
// described in spec.md §4.2/§4.3: ready LISTs plus a single time-ordered
// schedule SORTED SET backing QueueStore, and a TTL-bounded STRING
// record store backing ResultStore. Both are built on go-redis/v9
// pipelines, matching the teacher's pkg/queue/client.go usage of
// TxPipeline/BLMove/Lua scripts, adapted to dsq's key layout instead of
// the teacher's separate delayed/processing/dead-letter keys.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScheduleItem is one raw member of the schedule sorted set (queue
// name, colon and task body, left undivided) together with its score.
type ScheduleItem struct {
	Body  []byte
	Score float64
}

// Batch is the shape moved between QueueStore.TakeMany and
// QueueStore.PutMany, and thus between two QueueStores by the
// forwarder: a schedule slice plus the ready contents of every queue
// key, keyed by bare queue name (no "queue:" prefix). Empty queues are
// omitted, per spec.md §4.2.
type Batch struct {
	Schedule []ScheduleItem
	Queues   map[string][][]byte
}

// ScheduleEntry is a decoded, paged row from the schedule set: its eta
// score, the owning queue, and the opaque task body.
type ScheduleEntry struct {
	Score float64
	Queue string
	Body  []byte
}

// Stat reports queue depths for operator inspection (spec.md §4.2
// `stat`).
type Stat struct {
	ScheduleCount int64
	QueueDepths   map[string]int64
}

// QueueStore is the Redis-backed implementation of the durable ready
// queues plus the delayed schedule set.
type QueueStore struct {
	rdb *redis.Client
}

// NewQueueStore wraps an existing go-redis client. Several QueueStores
// may point at the same or different Redis instances (the forwarder
// uses two).
func NewQueueStore(rdb *redis.Client) *QueueStore {
	return &QueueStore{rdb: rdb}
}

// Push encodes nothing itself — callers pass an already-encoded task
// body — and either ZADDs it into the schedule set at the given eta, or
// RPUSHes it onto the named ready queue. Per spec.md §4.2.
func (s *QueueStore) Push(ctx context.Context, queue string, body []byte, eta *float64) error {
	if err := ValidateQueueName(queue); err != nil {
		return err
	}
	if eta != nil {
		return s.rdb.ZAdd(ctx, scheduleKey, redis.Z{
			Score:  *eta,
			Member: scheduleMember(queue, body),
		}).Err()
	}
	return s.rdb.RPush(ctx, queueKey(queue), body).Err()
}

// Pop blocks (BLPOP semantics) across the given queues in priority
// order, up to timeout (0 == block indefinitely), and returns the
// queue actually popped from and the raw task body. Returns ("", nil,
// nil) on timeout with no item available.
func (s *QueueStore) Pop(ctx context.Context, queues []string, timeout time.Duration) (string, []byte, error) {
	keys := make([]string, len(queues))
	for i, q := range queues {
		keys[i] = queueKey(q)
	}

	res, err := s.rdb.BLPop(ctx, timeout, keys...).Result()
	if err == redis.Nil {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if len(res) != 2 {
		return "", nil, fmt.Errorf("store: unexpected BLPOP reply shape %v", res)
	}
	return queueNameFromKey(res[0]), []byte(res[1]), nil
}

// Reschedule atomically reads every schedule member due at or before
// now, removes them, and returns the remaining schedule cardinality —
// the (ZRANGEBYSCORE, ZREMRANGEBYSCORE, ZCARD) triple is sent in one
// MULTI/EXEC round trip, per spec.md §4.2's atomicity requirement. Promotion
// itself (RPUSH per member) is chunked at 5000 members per pipeline to
// bound pipeline size.
func (s *QueueStore) Reschedule(ctx context.Context, now float64) (int64, error) {
	nowStr := formatScore(now)

	pipe := s.rdb.TxPipeline()
	rangeCmd := pipe.ZRangeByScore(ctx, scheduleKey, &redis.ZRangeBy{Min: "-inf", Max: nowStr})
	remCmd := pipe.ZRemRangeByScore(ctx, scheduleKey, "-inf", nowStr)
	cardCmd := pipe.ZCard(ctx, scheduleKey)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, err
	}

	members, err := rangeCmd.Result()
	if err != nil {
		return 0, err
	}
	if _, err := remCmd.Result(); err != nil {
		return 0, err
	}
	remaining, err := cardCmd.Result()
	if err != nil {
		return 0, err
	}

	const chunkSize = 5000
	for start := 0; start < len(members); start += chunkSize {
		end := start + chunkSize
		if end > len(members) {
			end = len(members)
		}
		chunk := members[start:end]

		promote := s.rdb.Pipeline()
		for _, raw := range chunk {
			queue, body := splitScheduleMember([]byte(raw))
			promote.RPush(ctx, queueKey(queue), body)
		}
		if _, err := promote.Exec(ctx); err != nil {
			return 0, err
		}
	}

	return remaining, nil
}

// TakeMany snapshots up to count items from the head of every ready
// queue and the count earliest schedule entries, then trims/removes the
// snapshotted ranges in the same pipeline. Used by the forwarder to
// drain one store into another. Per spec.md §4.2.
func (s *QueueStore) TakeMany(ctx context.Context, count int64) (Batch, error) {
	queueKeys, err := s.rdb.Keys(ctx, queueKey("*")).Result()
	if err != nil {
		return Batch{}, err
	}

	pipe := s.rdb.Pipeline()
	scheduleCmd := pipe.ZRangeWithScores(ctx, scheduleKey, 0, count-1)
	queueCmds := make([]*redis.StringSliceCmd, len(queueKeys))
	for i, q := range queueKeys {
		queueCmds[i] = pipe.LRange(ctx, q, 0, count-1)
	}
	remScheduleCmd := pipe.ZRemRangeByRank(ctx, scheduleKey, 0, count-1)
	trimCmds := make([]*redis.StatusCmd, len(queueKeys))
	for i, q := range queueKeys {
		trimCmds[i] = pipe.LTrim(ctx, q, count, -1)
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Batch{}, err
	}

	scheduleZ, err := scheduleCmd.Result()
	if err != nil {
		return Batch{}, err
	}
	schedule := make([]ScheduleItem, 0, len(scheduleZ))
	for _, z := range scheduleZ {
		schedule = append(schedule, ScheduleItem{Body: []byte(z.Member.(string)), Score: z.Score})
	}

	if err := remScheduleCmd.Err(); err != nil {
		return Batch{}, err
	}

	queues := make(map[string][][]byte, len(queueKeys))
	for i, q := range queueKeys {
		items, err := queueCmds[i].Result()
		if err != nil {
			return Batch{}, err
		}
		if err := trimCmds[i].Err(); err != nil {
			return Batch{}, err
		}
		if len(items) == 0 {
			continue
		}
		bodies := make([][]byte, len(items))
		for j, it := range items {
			bodies[j] = []byte(it)
		}
		queues[queueNameFromKey(q)] = bodies
	}

	return Batch{Schedule: schedule, Queues: queues}, nil
}

// PutMany is the reverse of TakeMany: it ZADDs schedule members back
// with their original scores and RPUSHes each queue's bodies in order,
// restoring a batch either to its origin store (forwarder failure
// recovery) or into a new destination store.
func (s *QueueStore) PutMany(ctx context.Context, batch Batch) error {
	pipe := s.rdb.Pipeline()

	if len(batch.Schedule) > 0 {
		members := make([]redis.Z, len(batch.Schedule))
		for i, item := range batch.Schedule {
			members[i] = redis.Z{Score: item.Score, Member: item.Body}
		}
		pipe.ZAdd(ctx, scheduleKey, members...)
	}

	for q, items := range batch.Queues {
		if len(items) == 0 {
			continue
		}
		vals := make([]interface{}, len(items))
		for i, it := range items {
			vals[i] = it
		}
		pipe.RPush(ctx, queueKey(q), vals...)
	}

	_, err := pipe.Exec(ctx)
	if err == redis.Nil {
		return nil
	}
	return err
}

// QueueList returns the names (without the "queue:" prefix) of every
// ready queue currently holding a key in Redis.
func (s *QueueStore) QueueList(ctx context.Context) ([]string, error) {
	keys, err := s.rdb.Keys(ctx, queueKey("*")).Result()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = queueNameFromKey(k)
	}
	return names, nil
}

// Stat reports the schedule cardinality and the LLEN of every ready
// queue.
func (s *QueueStore) Stat(ctx context.Context) (Stat, error) {
	names, err := s.QueueList(ctx)
	if err != nil {
		return Stat{}, err
	}

	pipe := s.rdb.Pipeline()
	cardCmd := pipe.ZCard(ctx, scheduleKey)
	lenCmds := make(map[string]*redis.IntCmd, len(names))
	for _, n := range names {
		lenCmds[n] = pipe.LLen(ctx, queueKey(n))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Stat{}, err
	}

	depths := make(map[string]int64, len(names))
	for n, cmd := range lenCmds {
		v, err := cmd.Result()
		if err != nil {
			return Stat{}, err
		}
		depths[n] = v
	}

	card, err := cardCmd.Result()
	if err != nil {
		return Stat{}, err
	}

	return Stat{ScheduleCount: card, QueueDepths: depths}, nil
}

// GetQueue pages raw task bodies out of a ready queue without removing
// them, for operator inspection.
func (s *QueueStore) GetQueue(ctx context.Context, name string, offset, limit int64) ([][]byte, error) {
	items, err := s.rdb.LRange(ctx, queueKey(name), offset, offset+limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(items))
	for i, it := range items {
		out[i] = []byte(it)
	}
	return out, nil
}

// GetSchedule pages decoded (score, queue, body) rows out of the
// schedule set without removing them.
func (s *QueueStore) GetSchedule(ctx context.Context, offset, limit int64) ([]ScheduleEntry, error) {
	z, err := s.rdb.ZRangeWithScores(ctx, scheduleKey, offset, offset+limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]ScheduleEntry, len(z))
	for i, item := range z {
		queue, body := splitScheduleMember([]byte(item.Member.(string)))
		out[i] = ScheduleEntry{Score: item.Score, Queue: queue, Body: body}
	}
	return out, nil
}

func formatScore(v float64) string {
	return fmt.Sprintf("%f", v)
}
