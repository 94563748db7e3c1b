package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/guido-cesarano/distributedq/internal/config"
	"github.com/guido-cesarano/distributedq/internal/manager"
	"github.com/spf13/cobra"
)

// newBenchCommand adapts the teacher's benchmark/main.go throughput
// tool: an enqueue phase across concurrent pushers, then a drain-phase
// poll of queue depths until the backlog clears. Hidden since it is a
// developer/ops tool, not part of the documented CLI surface.
func newBenchCommand() *cobra.Command {
	var (
		numTasks   int
		numWorkers int
		queue      string
	)

	cmd := &cobra.Command{
		Use:    "bench",
		Short:  "Measure push/pop throughput against a running worker fleet",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			m, qs := buildManager(cfg)
			ctx := context.Background()

			fmt.Printf("dsq benchmark\n=============\n")
			fmt.Printf("tasks to enqueue: %d\n", numTasks)
			fmt.Printf("concurrent pushers: %d\n\n", numWorkers)

			fmt.Println("enqueue phase...")
			startEnqueue := time.Now()

			var wg sync.WaitGroup
			var enqueued atomic.Int64
			perWorker := numTasks / numWorkers

			for i := 0; i < numWorkers; i++ {
				wg.Add(1)
				go func(workerID int) {
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						correlationID := uuid.New().String()
						_, err := m.Push(ctx, manager.PushOptions{
							Queue: queue,
							Name:  "echo",
							Args:  []interface{}{workerID, j},
							Meta:  map[string]interface{}{"bench_id": correlationID},
						})
						if err != nil {
							fmt.Printf("push error: %v\n", err)
							return
						}
						enqueued.Add(1)
					}
				}(i)
			}
			wg.Wait()
			enqueueTime := time.Since(startEnqueue)

			fmt.Printf("enqueued %d tasks in %s (%.2f tasks/sec)\n\n",
				enqueued.Load(), enqueueTime, float64(enqueued.Load())/enqueueTime.Seconds())

			fmt.Println("waiting for queue to drain...")
			startDrain := time.Now()
			for {
				stat, err := qs.Stat(ctx)
				if err != nil {
					return err
				}
				remaining := stat.QueueDepths[queue]
				if remaining == 0 {
					break
				}
				fmt.Printf("  remaining: %d\n", remaining)
				time.Sleep(2 * time.Second)
			}
			drainTime := time.Since(startDrain)

			fmt.Printf("\ndrained in %s\n", drainTime)
			total := enqueueTime + drainTime
			fmt.Printf("total time: %s (%.2f tasks/sec overall)\n", total, float64(numTasks)/total.Seconds())
			return nil
		},
	}

	cmd.Flags().IntVar(&numTasks, "tasks", 100000, "number of tasks to enqueue")
	cmd.Flags().IntVar(&numWorkers, "workers", 10, "number of concurrent enqueuers")
	cmd.Flags().StringVar(&queue, "queue", "bench", "queue to push into and drain")

	return cmd
}
