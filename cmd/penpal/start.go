package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/penpalhq/penpal/internal/config"
	"github.com/penpalhq/penpal/internal/workflow"
)

func newStartCmd() *cobra.Command {
	var (
		configPath string
		rosterPath string
		noListen   bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a campaign and listen for replies",
		Long: `Sends the opening email to every roster recipient, registers the mailbox
push watch, and then processes reply notifications until interrupted.
With --no-listen, only the opening emails are sent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, configPath, rosterPath, noListen)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "penpal.yaml", "path to Penpal config file")
	cmd.Flags().StringVar(&rosterPath, "roster", "", "recipient CSV (default: roster.csv_path from config)")
	cmd.Flags().BoolVar(&noListen, "no-listen", false, "send opening emails and exit")
	return cmd
}

func runStart(cmd *cobra.Command, configPath, rosterPath string, noListen bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	engine, cleanup, err := buildEngine(ctx, cmd, cfg, gormDB, !noListen)
	if err != nil {
		return err
	}
	defer cleanup()

	recipients := loadRecipients(cmd, rosterPath, cfg)
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients: roster missing and no fallback configured")
	}

	out := cmd.OutOrStdout()
	started, err := engine.StartCampaign(ctx, recipients)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Campaign started: %d of %d conversations opened\n", started, len(recipients))

	if noListen {
		return nil
	}

	if cfg.Mailbox.WatchTopic != "" {
		if err := engine.StartWatchRenewal(ctx, cfg.Mailbox.WatchRenewCron, cfg.Mailbox.WatchTopic); err != nil {
			return err
		}
	}
	return engine.Run(ctx)
}

// loadRecipients reads the roster CSV, falling back to the configured
// single recipient when the file is unavailable.
func loadRecipients(cmd *cobra.Command, rosterPath string, cfg *config.Config) []workflow.Recipient {
	if rosterPath == "" {
		rosterPath = cfg.Roster.CSVPath
	}

	recipients, err := workflow.LoadRoster(rosterPath)
	if err == nil {
		return recipients
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Roster unavailable (%v)\n", err)

	if cfg.Roster.FallbackEmail == "" {
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Using fallback recipient %s\n", cfg.Roster.FallbackEmail)
	return []workflow.Recipient{{Email: cfg.Roster.FallbackEmail, Name: cfg.Roster.FallbackName}}
}
