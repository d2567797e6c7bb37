// Package workflow is the conversation engine core: the notification
// worker pool, the per-thread state machine, the outbound dispatcher,
// and the campaign starter.
package workflow

import (
	"fmt"
	"io"
	"time"

	"github.com/penpalhq/penpal/internal/dedupe"
	"github.com/penpalhq/penpal/internal/llm"
	"github.com/penpalhq/penpal/internal/mail"
	"github.com/penpalhq/penpal/internal/notify"
	"github.com/penpalhq/penpal/internal/retry"
	"github.com/penpalhq/penpal/internal/store"
)

// Engine drives the conversation workflow end to end. One Engine serves
// one mailbox; its worker pool bounds concurrent notification handling
// and a keyed mutex serializes transitions per thread.
type Engine struct {
	store      *store.Store
	mailbox    mail.Mailbox
	classifier *mail.Classifier
	generator  llm.Generator
	seen       dedupe.Store
	subscriber notify.Subscriber
	ingestor   *notify.Ingestor
	out        io.Writer

	initialSubject string
	maxInFlight    int
	sendRetry      retry.Config
	genAttempts    int

	locks *threadLocks
}

// Opts holds the collaborators and tuning for an Engine.
type Opts struct {
	Store      *store.Store
	Mailbox    mail.Mailbox
	Classifier *mail.Classifier
	Generator  llm.Generator
	Seen       dedupe.Store
	Subscriber notify.Subscriber // may be nil for campaign-only use
	Ingestor   *notify.Ingestor
	Out        io.Writer

	InitialSubject string
	MaxInFlight    int
	SendAttempts   int
	SendBaseDelay  time.Duration
	GenAttempts    int
}

// New creates an Engine.
func New(opts Opts) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("workflow: store is required")
	}
	if opts.Mailbox == nil {
		return nil, fmt.Errorf("workflow: mailbox is required")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("workflow: classifier is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("workflow: generator is required")
	}
	if opts.Seen == nil {
		return nil, fmt.Errorf("workflow: dedupe store is required")
	}
	if opts.Ingestor == nil {
		return nil, fmt.Errorf("workflow: ingestor is required")
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.InitialSubject == "" {
		opts.InitialSubject = "Hello!"
	}
	if opts.MaxInFlight < 1 {
		opts.MaxInFlight = 10
	}
	if opts.SendAttempts < 1 {
		opts.SendAttempts = 3
	}
	if opts.SendBaseDelay == 0 {
		opts.SendBaseDelay = time.Second
	}
	if opts.GenAttempts < 1 {
		opts.GenAttempts = 3
	}

	return &Engine{
		store:          opts.Store,
		mailbox:        opts.Mailbox,
		classifier:     opts.Classifier,
		generator:      opts.Generator,
		seen:           opts.Seen,
		subscriber:     opts.Subscriber,
		ingestor:       opts.Ingestor,
		out:            opts.Out,
		initialSubject: opts.InitialSubject,
		maxInFlight:    opts.MaxInFlight,
		sendRetry:      retry.Config{MaxAttempts: opts.SendAttempts, BaseDelay: opts.SendBaseDelay},
		genAttempts:    opts.GenAttempts,
		locks:          newThreadLocks(),
	}, nil
}
