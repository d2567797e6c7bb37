package workflow

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/penpalhq/penpal/internal/notify"
)

// Run consumes the notification subscription until ctx is cancelled or
// the subscription ends. A bounded worker pool processes deliveries;
// cancellation stops intake and drains in-flight workers before Run
// returns. Every delivery is acked exactly once, whatever the outcome.
func (e *Engine) Run(ctx context.Context) error {
	if e.subscriber == nil {
		return fmt.Errorf("workflow: run: subscriber is required")
	}

	events, err := e.subscriber.Listen(ctx)
	if err != nil {
		return fmt.Errorf("workflow: subscribe: %w", err)
	}
	fmt.Fprintf(e.out, "listening for mailbox notifications (max %d in flight)\n", e.maxInFlight)

	// Cancellation stops intake only. Workers run on a detached context:
	// an id is marked seen before processing, so aborting mid-flight would
	// consume the message without handling it.
	workCtx := context.WithoutCancel(ctx)

	sem := make(chan struct{}, e.maxInFlight)
	var wg sync.WaitGroup
	for ev := range events {
		sem <- struct{}{}
		wg.Add(1)
		go func(ev notify.Event) {
			defer wg.Done()
			defer func() { <-sem }()
			e.process(workCtx, ev)
		}(ev)
	}

	wg.Wait()
	fmt.Fprintf(e.out, "notification stream closed, workers drained\n")
	return nil
}

// process handles one notification delivery end to end and acks it.
func (e *Engine) process(ctx context.Context, ev notify.Event) {
	defer func() {
		if err := ev.Ack(); err != nil {
			log.Printf("workflow: ack notification: %v", err)
		}
	}()

	n, err := notify.DecodeNotification(ev.Payload)
	if err != nil {
		log.Printf("workflow: drop notification: %v", err)
		return
	}

	for _, id := range e.ingestor.Resolve(ctx, uint64(n.HistoryID)) {
		e.handleMessage(ctx, id)
	}
}
