package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// requestTimeout bounds one generation call.
const requestTimeout = 120 * time.Second

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL      string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	BaseURL      string // e.g. "https://api.openai.com/v1"
	Model        string
	APIKey       string
	SystemPrompt string
	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

// NewClient creates a chat-completions Client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("llm: base url is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("llm: model is required")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("llm: api key is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		model:        opts.Model,
		apiKey:       opts.APIKey,
		systemPrompt: opts.SystemPrompt,
		httpClient:   client,
	}, nil
}

// GenerateInitial implements Generator.
func (c *Client) GenerateInitial(ctx context.Context, name, email string) (string, error) {
	return c.complete(ctx, initialPrompt(name, email))
}

// GenerateFollowUp implements Generator.
func (c *Client) GenerateFollowUp(ctx context.Context, step int, email, excerpt string) (string, error) {
	return c.complete(ctx, followUpPrompt(step, email, excerpt))
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// complete performs one chat-completions round trip.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	payload, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("llm: completion status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm: provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm: response has no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("llm: response content is empty")
	}
	return content, nil
}
