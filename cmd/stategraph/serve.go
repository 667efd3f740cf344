package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const defaultServeAddr = ":8080"

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve runs, metrics and the workflow diagram over HTTP",
	Long: `Starts an HTTP server with POST /runs to run the workflow on a topic,
GET /runs/{runID} for the step journal of a run, GET /graph for the diagram
and GET /metrics for Prometheus.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		addr := cfg.Metrics.Addr
		if addr == "" {
			addr = defaultServeAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		a.logger.Info("stategraph server listening on %s", addr)
		if err := serveHTTP(ctx, addr, newRouter(a)); err != nil {
			return err
		}
		a.logger.Info("stategraph server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("metrics-addr", "", "Listen address (default "+defaultServeAddr+")")
	serveCmd.Flags().String("journal", "", "Step journal backend (none, memory, redis, sqlite, postgres)")
}
