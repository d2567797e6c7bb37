package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/penpalhq/penpal/internal/dashboard"
	"github.com/penpalhq/penpal/internal/store"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the read-only status dashboard",
		Long:  "Starts an HTTP server exposing conversation state as JSON: /healthz, /api/threads, /api/threads/:id/messages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "penpal.yaml", "path to Penpal config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default: dashboard.port from config)")
	return cmd
}

func runDashboard(cmd *cobra.Command, configPath string, port int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	st, err := store.New(gormDB)
	if err != nil {
		return err
	}

	if port == 0 {
		port = cfg.Dashboard.Port
	}
	return dashboard.Start(ctx, dashboard.StartOpts{
		Store: st,
		Port:  port,
		Out:   cmd.OutOrStdout(),
	})
}
