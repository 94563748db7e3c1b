// Package forwarder implements the batched drain described in spec.md
// §4.7: take_many from a source QueueStore, put_many into a destination
// QueueStore, with a put-back-on-failure recovery path so the source is
// never left silently empty after a destination write failure.
// Grounded on original_source/dsq/cli.py's `forwarder` command.
package forwarder

import (
	"context"
	"fmt"
	"time"

	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/rs/zerolog"
)

// Forwarder drains one QueueStore into another on an interval.
type Forwarder struct {
	src       *store.QueueStore
	dst       *store.QueueStore
	interval  time.Duration
	batchSize int64
	log       zerolog.Logger
}

// Option configures a Forwarder at construction time.
type Option func(*Forwarder)

// WithInterval overrides the default 1-second idle-sleep interval.
func WithInterval(d time.Duration) Option {
	return func(f *Forwarder) { f.interval = d }
}

// WithBatchSize overrides the default 5000-item take_many batch size.
func WithBatchSize(n int64) Option {
	return func(f *Forwarder) { f.batchSize = n }
}

// WithLogger overrides the zerolog logger.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Forwarder) { f.log = log }
}

// New constructs a Forwarder between two QueueStores.
func New(src, dst *store.QueueStore, opts ...Option) *Forwarder {
	f := &Forwarder{src: src, dst: dst, interval: time.Second, batchSize: 5000}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run drains src into dst until ctx is cancelled. On a destination
// write failure it attempts to restore the batch to src before
// returning the error — operator intervention is then required, per
// spec.md §4.7/§7.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		batch, err := f.src.TakeMany(ctx, f.batchSize)
		if err != nil {
			return fmt.Errorf("forwarder: take_many: %w", err)
		}

		if len(batch.Schedule) == 0 && len(batch.Queues) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(f.interval):
			}
			continue
		}

		if err := f.dst.PutMany(ctx, batch); err != nil {
			f.log.Error().Err(err).Msg("forward error, restoring batch to source")
			if restoreErr := f.src.PutMany(ctx, batch); restoreErr != nil {
				return fmt.Errorf("forwarder: put_many failed (%v) and restore failed: %w", err, restoreErr)
			}
			return fmt.Errorf("forwarder: put_many: %w", err)
		}
	}
}
