package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/penpalhq/penpal/internal/mail"
	"github.com/penpalhq/penpal/internal/models"
	"github.com/penpalhq/penpal/internal/render"
	"github.com/penpalhq/penpal/internal/retry"
)

// Send opens a new thread: the markdown body is rendered to HTML, the
// message is transmitted with bounded retry, and the agent Message row is
// written. Persistence failure after a successful send is logged, never
// rolled back.
func (e *Engine) Send(ctx context.Context, to, subject, body string) (*mail.SendResult, error) {
	raw := mail.BuildOutgoing(to, subject, render.HTML(body))

	res, err := e.transmit(ctx, raw, "")
	if err != nil {
		return nil, fmt.Errorf("workflow: send to %s: %w", to, err)
	}

	e.recordAgentMessage(res, to, subject, body)
	return res, nil
}

// Reply sends a follow-up into an existing thread, binding the reply
// headers to the most recent externally-authored message.
func (e *Engine) Reply(ctx context.Context, threadID, body string) (*mail.SendResult, error) {
	msgs, err := e.mailbox.Thread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("workflow: load thread %s: %w", threadID, err)
	}

	agentAddr, err := e.classifier.AgentAddress(ctx)
	if err != nil {
		return nil, err
	}
	latest := mail.LatestExternal(msgs, agentAddr)
	if latest == nil {
		return nil, fmt.Errorf("workflow: thread %s has no external message to reply to", threadID)
	}

	to := mail.ExtractAddress(latest.Header("From"))
	subject := mail.ReplySubject(latest.Header("Subject"))
	raw := mail.BuildReply(to, subject, latest.Header("Message-Id"), render.HTML(body))

	res, err := e.transmit(ctx, raw, threadID)
	if err != nil {
		return nil, fmt.Errorf("workflow: reply in thread %s: %w", threadID, err)
	}

	e.recordAgentMessage(res, to, subject, body)
	return res, nil
}

// transmit sends raw bytes with the configured bounded retry.
func (e *Engine) transmit(ctx context.Context, raw []byte, threadID string) (*mail.SendResult, error) {
	var res *mail.SendResult
	err := retry.Do(ctx, e.sendRetry, func() error {
		var sendErr error
		res, sendErr = e.mailbox.Send(ctx, raw, threadID)
		return sendErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// recordAgentMessage writes the outbound message to thread history. The
// send already happened; a write failure only costs history.
func (e *Engine) recordAgentMessage(res *mail.SendResult, to, subject, body string) {
	err := e.store.InsertMessage(models.Message{
		MessageID: res.MessageID,
		ThreadID:  res.ThreadID,
		UserEmail: to,
		Sender:    models.SenderAgent,
		Body:      body,
		Subject:   subject,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("workflow: record outbound message %s: %v", res.MessageID, err)
	}
}
