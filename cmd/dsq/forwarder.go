package main

import (
	"time"

	"github.com/guido-cesarano/distributedq/internal/config"
	"github.com/guido-cesarano/distributedq/internal/forwarder"
	"github.com/guido-cesarano/distributedq/internal/logger"
	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/guido-cesarano/distributedq/internal/worker"
	"github.com/spf13/cobra"
)

func newForwarderCommand() *cobra.Command {
	var (
		dstAddr   string
		interval  time.Duration
		batchSize int64
	)

	cmd := &cobra.Command{
		Use:   "forwarder",
		Short: "Drain one Redis instance's queues into another",
		Long: `forwarder implements spec.md §4.7: repeatedly take_many from
the source QueueStore and put_many into the destination, restoring the
batch back onto the source on failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.New("forwarder")

			if dstAddr == "" {
				return cmdError("forwarder: --dst is required")
			}

			srcDB := newRedisClient(cfg.QueueRedisAddr)
			dstDB := newRedisClient(dstAddr)
			src := store.NewQueueStore(srcDB)
			dst := store.NewQueueStore(dstDB)

			f := forwarder.New(src, dst,
				forwarder.WithInterval(interval),
				forwarder.WithBatchSize(batchSize),
				forwarder.WithLogger(log),
			)

			ctx := worker.RunUntilSignal()
			log.Info().Str("dst", dstAddr).Msg("forwarder started")
			return f.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&dstAddr, "dst", "", "destination Redis address (required)")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "idle sleep interval when the source is empty")
	cmd.Flags().Int64Var(&batchSize, "batch-size", 1000, "items taken per queue/schedule per drain iteration")

	return cmd
}
