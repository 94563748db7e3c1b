package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/guido-cesarano/distributedq/internal/config"
	"github.com/guido-cesarano/distributedq/internal/logger"
	"github.com/guido-cesarano/distributedq/internal/manager"
	"github.com/guido-cesarano/distributedq/internal/metrics"
	"github.com/guido-cesarano/distributedq/internal/periodic"
	"github.com/guido-cesarano/distributedq/internal/ratelimit"
	"github.com/guido-cesarano/distributedq/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newWorkerCommand() *cobra.Command {
	var (
		queues      []string
		burst       bool
		lifetime    time.Duration
		taskTimeout time.Duration
		rateRPS     float64
		rateBurst   int
		noMetrics   bool
		heartbeat   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Pop and process tasks from one or more queues",
		Long: `worker runs the pop loop described in spec.md §4.5: blocking
pop across a priority-ordered list of queues, per-task timeout
enforcement, lifetime jitter, and graceful SIGINT/SIGTERM shutdown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.New("worker")

			queueList := queues
			if len(queueList) == 0 {
				queueList = []string{cfg.DefaultQueue}
			}

			m, qs := buildManager(cfg)

			registerDemoHandlers(m)

			metricsReg := metrics.New(prometheus.DefaultRegisterer)

			var limiter *ratelimit.Limiter
			if rateRPS > 0 {
				limiter = ratelimit.New(rateRPS, rateBurst)
			}

			opts := []worker.Option{
				worker.WithLogger(log),
				worker.WithTaskTimeout(taskTimeout),
				worker.WithMetrics(metricsReg),
			}
			if lifetime > 0 {
				opts = append(opts, worker.WithLifetime(lifetime))
			}
			if limiter != nil {
				opts = append(opts, worker.WithRateLimiter(limiter))
			}

			w := worker.New(m, opts...)

			ctx := worker.RunUntilSignal()

			if !noMetrics {
				metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
				go func() {
					log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
					if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.Error().Err(err).Msg("metrics server failed")
					}
				}()
				go metrics.CollectQueueDepths(ctx, qs, metricsReg, 5*time.Second)
				defer metricsSrv.Close()
			}

			if heartbeat > 0 {
				p := periodic.New(m, periodic.WithLogger(log))
				p.AddInterval("heartbeat", time.Now().Unix(), int64(heartbeat.Seconds()))
				p.Start(ctx)
				defer p.Stop()
			}

			log.Info().Strs("queues", queueList).Msg("worker started")
			return w.Process(ctx, queueList, burst)
		},
	}

	cmd.Flags().StringSliceVarP(&queues, "queue", "q", nil, "queues to pop from, in priority order (repeatable, comma-separated)")
	cmd.Flags().BoolVar(&burst, "burst", false, "exit once every queue is empty instead of blocking forever")
	cmd.Flags().DurationVar(&lifetime, "lifetime", 0, "maximum worker run time before exiting its pop loop (0 = unbounded)")
	cmd.Flags().DurationVar(&taskTimeout, "task-timeout", 0, "default per-task execution deadline when a task carries no explicit timeout")
	cmd.Flags().Float64Var(&rateRPS, "rate-limit", 0, "per-task-name requests/sec throttle (0 disables rate limiting)")
	cmd.Flags().IntVar(&rateBurst, "rate-burst", 1, "burst size for --rate-limit")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the Prometheus metrics HTTP endpoint")
	cmd.Flags().DurationVar(&heartbeat, "heartbeat", 0, "push a heartbeat task on this interval via the periodic dispatcher (0 disables it)")

	return cmd
}

// registerDemoHandlers installs a handful of built-in task handlers so
// a freshly started worker has something to execute out of the box,
// mirroring the teacher's cmd/worker/main.go hardcoded "email"/"slow"/
// "image_resize" task-type switch. Real deployments register their own
// handlers in-process against a Manager before calling Worker.Process;
// these exist for manual smoke-testing via `dsq queue`.
func registerDemoHandlers(m *manager.Manager) {
	m.RegisterPlain("echo", func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return fmt.Sprintf("%v %v", args, kwargs), nil
	})
	m.RegisterPlain("sleep", func(args []interface{}, _ map[string]interface{}) (interface{}, error) {
		d := time.Second
		if len(args) > 0 {
			if secs, ok := args[0].(float64); ok {
				d = time.Duration(secs * float64(time.Second))
			}
		}
		time.Sleep(d)
		return "slept " + d.String(), nil
	})
	m.RegisterPlain("heartbeat", func(_ []interface{}, _ map[string]interface{}) (interface{}, error) {
		return "beat", nil
	})
}
