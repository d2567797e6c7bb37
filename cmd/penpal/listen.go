package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newListenCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Process reply notifications for existing conversations",
		Long: `Consumes the mailbox push-notification queue and advances existing
conversations without starting a new campaign. Use after a restart to
resume in-flight threads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "penpal.yaml", "path to Penpal config file")
	return cmd
}

func runListen(cmd *cobra.Command, configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	engine, cleanup, err := buildEngine(ctx, cmd, cfg, gormDB, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Mailbox.WatchTopic != "" {
		if err := engine.StartWatchRenewal(ctx, cfg.Mailbox.WatchRenewCron, cfg.Mailbox.WatchTopic); err != nil {
			return err
		}
	}
	return engine.Run(ctx)
}
