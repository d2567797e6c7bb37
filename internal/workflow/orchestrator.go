package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/penpalhq/penpal/internal/mail"
	"github.com/penpalhq/penpal/internal/models"
)

// followupStatus is the status label written after advancing to step.
func followupStatus(step int) string {
	if step >= models.FinalStep {
		return models.StatusCompleted
	}
	return fmt.Sprintf("sent_followup_%d", step)
}

// handleMessage runs one inbound message id through the full pipeline:
// idempotency gate, classification, validation, then the per-thread
// state transition. Every outcome is terminal for the id; nothing is
// retried at this layer.
func (e *Engine) handleMessage(ctx context.Context, id string) {
	first, err := e.seen.TestAndMark(ctx, id)
	if err != nil {
		log.Printf("workflow: dedupe check %s: %v", id, err)
		return
	}
	if !first {
		return
	}

	in, err := e.classifier.Classify(ctx, id)
	if err != nil {
		log.Printf("workflow: classify %s: %v", id, err)
		return
	}
	agentAddr, err := e.classifier.AgentAddress(ctx)
	if err != nil {
		log.Printf("workflow: %v", err)
		return
	}
	if reason := mail.Gate(in, agentAddr); reason != "" {
		log.Printf("workflow: skip message %s (%s)", id, reason)
		return
	}

	unlock := e.locks.lock(in.ThreadID)
	defer unlock()

	state, err := e.store.GetWorkflowState(in.ThreadID)
	if err != nil {
		log.Printf("workflow: load state for thread %s: %v", in.ThreadID, err)
		return
	}
	if state == nil {
		log.Printf("workflow: thread %s is not an active conversation, ignoring", in.ThreadID)
		return
	}

	e.recordUserMessage(in)

	if state.Step >= models.FinalStep {
		log.Printf("workflow: thread %s already completed", in.ThreadID)
		return
	}

	body := e.generate(ctx, state.Step, in)
	if body == "" {
		// Step is not advanced; the message id stays consumed.
		log.Printf("workflow: no response generated for thread %s at step %d, skipping", in.ThreadID, state.Step)
		return
	}

	if _, err := e.Reply(ctx, in.ThreadID, body); err != nil {
		log.Printf("workflow: %v", err)
		return
	}

	next := state.Step + 1
	if err := e.store.UpsertWorkflowState(in.ThreadID, next, followupStatus(next)); err != nil {
		log.Printf("workflow: advance thread %s to step %d: %v", in.ThreadID, next, err)
		return
	}
	fmt.Fprintf(e.out, "thread %s advanced to step %d (%s)\n", in.ThreadID, next, followupStatus(next))
}

// generate asks the response generator for a follow-up body, retrying up
// to the configured attempts with no backoff. Empty means give up.
func (e *Engine) generate(ctx context.Context, step int, in *mail.Inbound) string {
	for attempt := 1; attempt <= e.genAttempts; attempt++ {
		body, err := e.generator.GenerateFollowUp(ctx, step, in.SenderEmail, in.Body)
		if err != nil {
			log.Printf("workflow: generate for thread %s (attempt %d/%d): %v", in.ThreadID, attempt, e.genAttempts, err)
			continue
		}
		if body != "" {
			return body
		}
	}
	return ""
}

// recordUserMessage appends the inbound message to thread history.
// Best-effort: a duplicate is a no-op via the unique message_id index,
// and a failure is logged without stopping the turn.
func (e *Engine) recordUserMessage(in *mail.Inbound) {
	err := e.store.InsertMessage(models.Message{
		MessageID: in.MessageID,
		ThreadID:  in.ThreadID,
		UserEmail: in.SenderEmail,
		Sender:    models.SenderUser,
		Body:      in.Body,
		Subject:   in.Subject,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("workflow: record inbound message %s: %v", in.MessageID, err)
	}
}
