package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// watchTimeout bounds one watch registration call.
const watchTimeout = 30 * time.Second

// RenewWatch (re)registers the mailbox push subscription to topic.
func (e *Engine) RenewWatch(ctx context.Context, topic string) error {
	ctx, cancel := context.WithTimeout(ctx, watchTimeout)
	defer cancel()
	if err := e.mailbox.Watch(ctx, topic); err != nil {
		return fmt.Errorf("workflow: renew watch on %s: %w", topic, err)
	}
	return nil
}

// StartWatchRenewal registers the watch immediately and then re-registers
// on each fire of the cron expression until ctx is done. The provider
// expires registrations, so renewal failures are logged and retried at
// the next fire rather than treated as fatal.
func (e *Engine) StartWatchRenewal(ctx context.Context, expr, topic string) error {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return fmt.Errorf("workflow: parse watch schedule %q: %w", expr, err)
	}

	if err := e.RenewWatch(ctx, topic); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "mailbox watch registered on %s, renewing on %q\n", topic, expr)

	go func() {
		for {
			next := time.Until(sched.Next(time.Now()))
			timer := time.NewTimer(next)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if err := e.RenewWatch(ctx, topic); err != nil {
				log.Printf("%v", err)
			}
		}
	}()
	return nil
}
