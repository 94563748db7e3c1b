package main

import (
	"github.com/guido-cesarano/distributedq/internal/config"
	"github.com/guido-cesarano/distributedq/internal/httpserver"
	"github.com/guido-cesarano/distributedq/internal/logger"
	"github.com/spf13/cobra"
)

func newHTTPCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the push/result/stats/tasks HTTP ingress",
		Long: `http exposes the ingress described in spec.md §6: POST /push,
GET /result, GET /stats, GET /tasks, with JSON/msgpack content
negotiation and X-API-Key authentication when API_KEY is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.New("http")

			m, qs := buildManager(cfg)
			registerDemoHandlers(m)

			srv := httpserver.New(m, qs, httpserver.WithAPIKey(cfg.APIKey), httpserver.WithLogger(log))

			listenAddr := cfg.HTTPAddr
			if addr != "" {
				listenAddr = addr
			}

			log.Info().Str("addr", listenAddr).Msg("http ingress listening")
			return srv.ListenAndServe(listenAddr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "override the bind address (defaults to DSQ_HTTP_ADDR)")

	return cmd
}
