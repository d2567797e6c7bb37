package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/penpalhq/penpal/internal/models"
	"github.com/penpalhq/penpal/internal/store"
)

func newStatusCmd() *cobra.Command {
	var (
		configPath string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show conversation status",
		Long:  "Displays every conversation thread with its step, status, recipient, and last activity. Use --watch for auto-refresh.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath, watch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "penpal.yaml", "path to Penpal config file")
	cmd.Flags().BoolVar(&watch, "watch", false, "auto-refresh every 5 seconds")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string, watch bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	st, err := store.New(gormDB)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for {
		text, err := formatStatus(st, terminalWidth())
		if err != nil {
			return err
		}

		if watch {
			// Clear screen.
			fmt.Fprint(out, "\033[2J\033[H")
		}
		fmt.Fprint(out, text)

		if !watch {
			return nil
		}
		time.Sleep(5 * time.Second)
	}
}

// terminalWidth returns the stdout width, or 100 when not a TTY.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 100
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width < 60 {
		return 100
	}
	return width
}

// formatStatus renders the thread table, fitting the thread id column to
// the available width.
func formatStatus(st *store.Store, width int) (string, error) {
	states, err := st.AllWorkflowStates()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Penpal conversations: %d\n\n", len(states))
	if len(states) == 0 {
		b.WriteString("No conversations yet. Run \"penpal start\" to open a campaign.\n")
		return b.String(), nil
	}

	idWidth := width - 62
	if idWidth < 12 {
		idWidth = 12
	}
	fmt.Fprintf(&b, "%-*s  %-28s  %4s  %-16s  %s\n", idWidth, "THREAD", "RECIPIENT", "STEP", "STATUS", "UPDATED")

	completed := 0
	for _, s := range states {
		email, err := st.ThreadUserEmail(s.ThreadID)
		if err != nil {
			return "", err
		}
		if s.Step >= models.FinalStep {
			completed++
		}
		fmt.Fprintf(&b, "%-*s  %-28s  %4d  %-16s  %s\n",
			idWidth, clip(s.ThreadID, idWidth),
			clip(email, 28), s.Step, s.Status,
			s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "\n%d active, %d completed\n", len(states)-completed, completed)
	return b.String(), nil
}

// clip truncates s to max characters with an ellipsis.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
