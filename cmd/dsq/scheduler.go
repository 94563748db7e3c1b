package main

import (
	"time"

	"github.com/guido-cesarano/distributedq/internal/config"
	"github.com/guido-cesarano/distributedq/internal/logger"
	"github.com/guido-cesarano/distributedq/internal/scheduler"
	"github.com/guido-cesarano/distributedq/internal/worker"
	"github.com/spf13/cobra"
)

func newSchedulerCommand() *cobra.Command {
	var (
		interval time.Duration
		burst    bool
	)

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Promote due schedule entries into their ready queues",
		Long: `scheduler runs the promotion loop from spec.md §4.6: every
interval, call QueueStore.Reschedule; in burst mode, exit once the
schedule set is empty. Safe to run multiple instances concurrently.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.New("scheduler")

			_, qs := buildManager(cfg)

			s := scheduler.New(qs, scheduler.WithInterval(interval), scheduler.WithLogger(log))

			ctx := worker.RunUntilSignal()
			log.Info().Dur("interval", interval).Msg("scheduler started")
			return s.Run(ctx, burst)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Second, "promotion poll interval")
	cmd.Flags().BoolVar(&burst, "burst", false, "exit once the schedule set is empty instead of running forever")

	return cmd
}
