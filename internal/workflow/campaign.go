package workflow

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/penpalhq/penpal/internal/models"
)

// Recipient is one campaign roster entry.
type Recipient struct {
	Email string
	Name  string
}

// LoadRoster reads the campaign roster CSV. Expected header columns:
// Email_Address, Name. Rows missing either field are skipped.
func LoadRoster(path string) ([]Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: open roster %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("workflow: read roster %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workflow: roster %s is empty", path)
	}

	emailCol, nameCol := -1, -1
	for i, col := range rows[0] {
		switch strings.TrimSpace(col) {
		case "Email_Address":
			emailCol = i
		case "Name":
			nameCol = i
		}
	}
	if emailCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("workflow: roster %s lacks Email_Address/Name columns", path)
	}

	var recipients []Recipient
	for _, row := range rows[1:] {
		if len(row) <= emailCol || len(row) <= nameCol {
			continue
		}
		email := strings.TrimSpace(row[emailCol])
		name := strings.TrimSpace(row[nameCol])
		if email == "" || name == "" {
			continue
		}
		recipients = append(recipients, Recipient{Email: email, Name: name})
	}
	return recipients, nil
}

// StartCampaign opens a conversation with each recipient: generate the
// opening body, send it, and register the thread at step 0. A failed
// recipient is logged and skipped; the campaign continues. Returns the
// number of conversations started.
func (e *Engine) StartCampaign(ctx context.Context, recipients []Recipient) (int, error) {
	if len(recipients) == 0 {
		return 0, fmt.Errorf("workflow: campaign has no recipients")
	}

	started := 0
	for _, r := range recipients {
		if err := e.startConversation(ctx, r); err != nil {
			log.Printf("workflow: start conversation with %s: %v", r.Email, err)
			continue
		}
		started++
		fmt.Fprintf(e.out, "started conversation with %s <%s>\n", r.Name, r.Email)
	}

	if started == 0 {
		return 0, fmt.Errorf("workflow: campaign failed for all %d recipients", len(recipients))
	}
	return started, nil
}

// startConversation runs the full opening sequence for one recipient.
func (e *Engine) startConversation(ctx context.Context, r Recipient) error {
	var body string
	var err error
	for attempt := 1; attempt <= e.genAttempts; attempt++ {
		body, err = e.generator.GenerateInitial(ctx, r.Name, r.Email)
		if err == nil && body != "" {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("generate opening: %w", err)
	}
	if body == "" {
		return fmt.Errorf("generate opening: empty body")
	}

	res, err := e.Send(ctx, r.Email, e.initialSubject, body)
	if err != nil {
		return err
	}

	if err := e.store.UpsertUser(r.Email, r.Name); err != nil {
		log.Printf("workflow: upsert user %s: %v", r.Email, err)
	}
	if err := e.store.UpsertWorkflowState(res.ThreadID, models.InitialStep, models.StatusSentInitial); err != nil {
		return fmt.Errorf("register thread %s: %w", res.ThreadID, err)
	}
	return nil
}
