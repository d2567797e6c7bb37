package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/penpalhq/penpal/internal/config"
	"github.com/penpalhq/penpal/internal/db"
	"github.com/penpalhq/penpal/internal/dedupe"
	"github.com/penpalhq/penpal/internal/llm"
	"github.com/penpalhq/penpal/internal/mail"
	"github.com/penpalhq/penpal/internal/notify"
	"github.com/penpalhq/penpal/internal/store"
	"github.com/penpalhq/penpal/internal/workflow"
)

// Environment variables carrying secrets. The config file never holds
// credentials.
const (
	envClientSecret = "GMAIL_CLIENT_SECRET"
	envRefreshToken = "GMAIL_REFRESH_TOKEN"
	envOpenAIKey    = "OPENAI_API_KEY"
)

// connectFromConfig loads the config and opens the database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// tokenSource builds the OAuth2 refresh-token source for the mailbox API.
func tokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	secret := os.Getenv(envClientSecret)
	refresh := os.Getenv(envRefreshToken)
	if cfg.Mailbox.ClientID == "" || secret == "" || refresh == "" {
		return nil, fmt.Errorf("mailbox auth requires mailbox.client_id plus %s and %s", envClientSecret, envRefreshToken)
	}

	oc := oauth2.Config{
		ClientID:     cfg.Mailbox.ClientID,
		ClientSecret: secret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.Mailbox.TokenURL},
	}
	return oc.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}), nil
}

// buildEngine wires the full workflow engine from config and environment.
// The returned cleanup closes broker and redis connections.
func buildEngine(ctx context.Context, cmd *cobra.Command, cfg *config.Config, gormDB *gorm.DB, withSubscriber bool) (*workflow.Engine, func(), error) {
	st, err := store.New(gormDB)
	if err != nil {
		return nil, nil, err
	}

	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	mailbox, err := mail.NewGmail(mail.GmailOpts{
		BaseURL:     cfg.Mailbox.BaseURL,
		UserID:      cfg.Mailbox.UserID,
		TokenSource: ts,
	})
	if err != nil {
		return nil, nil, err
	}
	classifier, err := mail.NewClassifier(mailbox, cfg.Agent.Address)
	if err != nil {
		return nil, nil, err
	}

	apiKey := os.Getenv(envOpenAIKey)
	if apiKey == "" {
		return nil, nil, fmt.Errorf("response generation requires %s", envOpenAIKey)
	}
	generator, err := llm.NewClient(llm.ClientOpts{
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		APIKey:       apiKey,
		SystemPrompt: llm.SystemPrompt(cfg.Agent.Name, cfg.LLM.ContextFile),
	})
	if err != nil {
		return nil, nil, err
	}

	var seen dedupe.Store
	var redisStore *dedupe.RedisStore
	if cfg.Dedupe.RedisAddr != "" {
		redisStore = dedupe.NewRedisStore(cfg.Dedupe.RedisAddr, time.Duration(cfg.Dedupe.TTLHours)*time.Hour)
		seen = redisStore
	} else {
		seen = dedupe.NewMemoryStore()
	}

	var subscriber notify.Subscriber
	var amqpSub *notify.AMQPSubscriber
	if withSubscriber {
		amqpSub, err = notify.NewAMQPSubscriber(notify.AMQPOpts{
			URL:      cfg.Notify.AMQPURL,
			Queue:    cfg.Notify.Queue,
			Prefetch: cfg.Workflow.MaxInFlight,
		})
		if err != nil {
			return nil, nil, err
		}
		subscriber = amqpSub
	}

	ingestor, err := notify.NewIngestor(notify.IngestorOpts{
		Mailbox:  mailbox,
		Lookback: cfg.Mailbox.HistoryLookback,
		Recent:   cfg.Mailbox.RecentFallback,
	})
	if err != nil {
		return nil, nil, err
	}

	engine, err := workflow.New(workflow.Opts{
		Store:          st,
		Mailbox:        mailbox,
		Classifier:     classifier,
		Generator:      generator,
		Seen:           seen,
		Subscriber:     subscriber,
		Ingestor:       ingestor,
		Out:            cmd.OutOrStdout(),
		InitialSubject: cfg.Agent.InitialSubject,
		MaxInFlight:    cfg.Workflow.MaxInFlight,
		SendAttempts:   cfg.Workflow.SendMaxAttempts,
		SendBaseDelay:  time.Duration(cfg.Workflow.SendBackoffBaseMS) * time.Millisecond,
		GenAttempts:    cfg.LLM.MaxAttempts,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if amqpSub != nil {
			amqpSub.Close()
		}
		if redisStore != nil {
			redisStore.Close()
		}
	}
	return engine, cleanup, nil
}
