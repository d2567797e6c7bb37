// Package config provides YAML-based configuration loading for Penpal.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Penpal configuration, loaded from penpal.yaml.
// Secrets (API keys, OAuth tokens) are never stored here; they come from
// the environment at startup.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Database  DatabaseConfig  `yaml:"database"`
	Mailbox   MailboxConfig   `yaml:"mailbox"`
	Notify    NotifyConfig    `yaml:"notify"`
	Dedupe    DedupeConfig    `yaml:"dedupe"`
	LLM       LLMConfig       `yaml:"llm"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Roster    RosterConfig    `yaml:"roster"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// AgentConfig identifies the sending persona.
type AgentConfig struct {
	Address        string `yaml:"address"` // resolved via profile lookup when empty
	Name           string `yaml:"name"`
	InitialSubject string `yaml:"initial_subject"`
}

// DatabaseConfig holds connection settings for the conversation database.
// The sqlite driver is the default; mysql is available for shared setups.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "mysql"
	Path   string `yaml:"path"`   // sqlite file path
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Name   string `yaml:"name"`
	User   string `yaml:"user"`
}

// MailboxConfig holds settings for the mailbox provider API.
type MailboxConfig struct {
	BaseURL         string `yaml:"base_url"`
	UserID          string `yaml:"user_id"`
	HistoryLookback uint64 `yaml:"history_lookback"` // history window below a notification's historyId
	RecentFallback  int    `yaml:"recent_fallback"`  // messages listed on the degraded path
	WatchTopic      string `yaml:"watch_topic"`      // push-notification topic to (re)register
	WatchRenewCron  string `yaml:"watch_renew_cron"` // 5-field cron for watch renewal
	TokenURL        string `yaml:"token_url"`        // OAuth2 token endpoint
	ClientID        string `yaml:"client_id"`
}

// NotifyConfig holds settings for the push-notification queue.
type NotifyConfig struct {
	AMQPURL string `yaml:"amqp_url"`
	Queue   string `yaml:"queue"`
}

// DedupeConfig selects the idempotency store. An empty RedisAddr keeps the
// default process-lifetime in-memory store.
type DedupeConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	TTLHours  int    `yaml:"ttl_hours"`
}

// LLMConfig holds settings for the response generator endpoint. The API key
// is read from OPENAI_API_KEY.
type LLMConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	MaxAttempts int    `yaml:"max_attempts"`
	ContextFile string `yaml:"context_file"` // extra persona context appended to the system prompt
}

// WorkflowConfig tunes the notification worker pool and the dispatcher.
type WorkflowConfig struct {
	MaxInFlight       int `yaml:"max_in_flight"`
	SendMaxAttempts   int `yaml:"send_max_attempts"`
	SendBackoffBaseMS int `yaml:"send_backoff_base_ms"`
}

// RosterConfig points at the campaign recipient list.
type RosterConfig struct {
	CSVPath       string `yaml:"csv_path"`
	FallbackEmail string `yaml:"fallback_email"` // used when the CSV is missing
	FallbackName  string `yaml:"fallback_name"`
}

// DashboardConfig holds settings for the read-only status dashboard.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Agent.Name == "" {
		c.Agent.Name = "Penpal"
	}
	if c.Agent.InitialSubject == "" {
		c.Agent.InitialSubject = "Hello from " + c.Agent.Name + "!"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "penpal.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "penpal"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Mailbox.BaseURL == "" {
		c.Mailbox.BaseURL = "https://gmail.googleapis.com/gmail/v1"
	}
	if c.Mailbox.UserID == "" {
		c.Mailbox.UserID = "me"
	}
	if c.Mailbox.HistoryLookback == 0 {
		c.Mailbox.HistoryLookback = 100
	}
	if c.Mailbox.RecentFallback == 0 {
		c.Mailbox.RecentFallback = 5
	}
	if c.Mailbox.WatchRenewCron == "" {
		c.Mailbox.WatchRenewCron = "0 3 * * *"
	}
	if c.Mailbox.TokenURL == "" {
		c.Mailbox.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if c.Notify.Queue == "" {
		c.Notify.Queue = "penpal.mailbox-events"
	}
	if c.Dedupe.TTLHours == 0 {
		c.Dedupe.TTLHours = 72
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.MaxAttempts == 0 {
		c.LLM.MaxAttempts = 3
	}
	if c.Workflow.MaxInFlight == 0 {
		c.Workflow.MaxInFlight = 10
	}
	if c.Workflow.SendMaxAttempts == 0 {
		c.Workflow.SendMaxAttempts = 3
	}
	if c.Workflow.SendBackoffBaseMS == 0 {
		c.Workflow.SendBackoffBaseMS = 1000
	}
	if c.Roster.CSVPath == "" {
		c.Roster.CSVPath = "recipients.csv"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Notify.AMQPURL == "" {
		errs = append(errs, "notify.amqp_url is required")
	}
	if c.LLM.Model == "" {
		errs = append(errs, "llm.model is required")
	}
	if c.Workflow.MaxInFlight < 1 {
		errs = append(errs, "workflow.max_in_flight must be at least 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
