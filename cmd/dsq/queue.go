package main

import (
	"encoding/json"
	"fmt"

	"github.com/guido-cesarano/distributedq/internal/codec"
	"github.com/guido-cesarano/distributedq/internal/config"
	"github.com/spf13/cobra"
)

func newQueueCommand() *cobra.Command {
	var (
		offset int64
		limit  int64
	)

	cmd := &cobra.Command{
		Use:   "queue QUEUE…",
		Short: "Inspect the head of one or more ready queues",
		Long: `queue decodes and prints up to --limit pending task envelopes
from each named queue, per spec.md §6's inspection surface.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			_, qs := buildManager(cfg)
			ctx := cmd.Context()

			for _, name := range args {
				bodies, err := qs.GetQueue(ctx, name, offset, limit)
				if err != nil {
					return fmt.Errorf("dsq queue: %s: %w", name, err)
				}
				for _, body := range bodies {
					env, err := codec.Decode(body)
					if err != nil {
						continue
					}
					printJSON(env)
				}
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "paging offset")
	cmd.Flags().Int64Var(&limit, "limit", 50, "maximum envelopes printed per queue")

	return cmd
}

func newQueueListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "queue-list",
		Short: "List every ready queue name currently in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			_, qs := buildManager(cfg)

			names, err := qs.QueueList(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func newScheduleCommand() *cobra.Command {
	var (
		offset int64
		limit  int64
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect pending entries in the delayed schedule set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			_, qs := buildManager(cfg)

			entries, err := qs.GetSchedule(cmd.Context(), offset, limit)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				env, err := codec.Decode(entry.Body)
				if err != nil {
					continue
				}
				printJSON(map[string]interface{}{
					"eta":   entry.Score,
					"queue": entry.Queue,
					"task":  env,
				})
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "paging offset")
	cmd.Flags().Int64Var(&limit, "limit", 50, "maximum entries printed")

	return cmd
}

func newStatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stat",
		Short: "Print schedule cardinality and every queue's depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			_, qs := buildManager(cfg)

			stat, err := qs.Stat(cmd.Context())
			if err != nil {
				return err
			}
			printJSON(map[string]interface{}{
				"schedule_count": stat.ScheduleCount,
				"queues":         stat.QueueDepths,
			})
			return nil
		},
	}
}

func printJSON(v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(body))
}
