package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentfactory/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflow HTTP API",
	Long: `Starts the HTTP API. Workflows posted to /run/workflow run in the
background; poll /workflow/result/{trace_id} for the outcome.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := server.New(a.env,
			server.FromConfig(cfg.Server),
			func(o *server.Options) {
				o.Logger = logger
				o.Metrics = a.metrics
				o.Gatherer = a.registry
				o.Store = a.store
			},
		)

		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}
