package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/climatewash/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes diagnosis, transcript and history endpoints under /v1,
plus /health and Prometheus metrics at /metrics. History is kept in memory for the server's lifetime.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	srv := server.New(server.Config{
		Port:           port,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		RequestTimeout: a.cfg.Server.RequestTimeout,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
		RateLimit:      a.cfg.RateLimit(),
	}, a.diagnoser, a.metrics, a.logger)

	return srv.Start(ctx)
}
