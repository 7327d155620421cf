package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/healthbot"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the chat API. The server stops gracefully on SIGINT or SIGTERM.

Endpoints:
  POST /chat
  GET  /history/{user_id}
  GET  /queries/{user_id}
  GET  /healthz
  GET  /metrics`,
		Example: `  # Serve with the default configuration
  healthbot serve

  # Serve on another port
  healthbot serve --addr :9000 -c configs/healthbot.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if addr != "" {
				cfg.Server.Addr = addr
			}

			app, err := healthbot.New(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return app.Server().ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}
