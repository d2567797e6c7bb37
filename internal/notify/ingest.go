package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/penpalhq/penpal/internal/mail"
)

// Notification is the decoded push-notification payload.
type Notification struct {
	EmailAddress string    `json:"emailAddress"`
	HistoryID    historyID `json:"historyId"`
}

// historyID tolerates both the string and number encodings the provider
// has used for historyId.
type historyID uint64

func (h *historyID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("notify: parse historyId %s: %w", string(data), err)
	}
	*h = historyID(v)
	return nil
}

// DecodeNotification parses a notification payload. A payload without a
// positive historyId is an error; callers drop such events.
func DecodeNotification(payload []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("notify: decode notification: %w", err)
	}
	if n.HistoryID == 0 {
		return nil, fmt.Errorf("notify: notification has no historyId")
	}
	return &n, nil
}

// Ingestor resolves a notification's history position to concrete
// message ids, with a bounded-recency fallback when the history window
// has expired at the provider.
type Ingestor struct {
	mailbox  mail.Mailbox
	lookback uint64
	recent   int
}

// IngestorOpts holds parameters for creating an Ingestor.
type IngestorOpts struct {
	Mailbox  mail.Mailbox
	Lookback uint64 // history window below the notification's historyId
	Recent   int    // messages listed on the fallback path
}

// NewIngestor creates an Ingestor.
func NewIngestor(opts IngestorOpts) (*Ingestor, error) {
	if opts.Mailbox == nil {
		return nil, fmt.Errorf("notify: mailbox is required")
	}
	if opts.Lookback == 0 {
		opts.Lookback = 100
	}
	if opts.Recent == 0 {
		opts.Recent = 5
	}
	return &Ingestor{mailbox: opts.Mailbox, lookback: opts.Lookback, recent: opts.Recent}, nil
}

// Resolve turns a history position into message ids. The history API is
// queried from lookback below the notified position (floor 1); on
// failure the most recent messages are listed instead. Both paths
// failing drops the notification with a log line, never an error.
func (i *Ingestor) Resolve(ctx context.Context, historyID uint64) []string {
	start := uint64(1)
	if historyID > i.lookback {
		start = historyID - i.lookback
	}

	ids, err := i.mailbox.History(ctx, start)
	if err == nil {
		return ids
	}
	log.Printf("notify: history from %d failed, listing recent: %v", start, err)

	ids, err = i.mailbox.ListRecent(ctx, i.recent)
	if err != nil {
		log.Printf("notify: recent-messages fallback failed, dropping notification: %v", err)
		return nil
	}
	return ids
}
