package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// defaultTimeout bounds a single provider API call.
const defaultTimeout = 30 * time.Second

// Gmail is the production Mailbox implementation over the Gmail REST API.
// Authentication comes from the injected OAuth2 token source.
type Gmail struct {
	baseURL string
	userID  string
	client  *http.Client
}

// GmailOpts holds parameters for creating a Gmail mailbox.
type GmailOpts struct {
	BaseURL     string // e.g. "https://gmail.googleapis.com/gmail/v1"
	UserID      string // "me" for the authenticated mailbox
	TokenSource oauth2.TokenSource
	// HTTPClient overrides the OAuth2 client; used by tests.
	HTTPClient *http.Client
}

// NewGmail creates a Gmail mailbox.
func NewGmail(opts GmailOpts) (*Gmail, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("mail: gmail: base url is required")
	}
	if opts.UserID == "" {
		opts.UserID = "me"
	}
	client := opts.HTTPClient
	if client == nil {
		if opts.TokenSource == nil {
			return nil, fmt.Errorf("mail: gmail: token source is required")
		}
		client = oauth2.NewClient(context.Background(), opts.TokenSource)
		client.Timeout = defaultTimeout
	}
	return &Gmail{
		baseURL: opts.BaseURL,
		userID:  opts.UserID,
		client:  client,
	}, nil
}

// Profile returns the mailbox's own address.
func (g *Gmail) Profile(ctx context.Context) (string, error) {
	var resp struct {
		EmailAddress string `json:"emailAddress"`
	}
	if err := g.do(ctx, http.MethodGet, "/profile", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.EmailAddress, nil
}

// History returns ids of messages added since startHistoryID.
func (g *Gmail) History(ctx context.Context, startHistoryID uint64) ([]string, error) {
	query := url.Values{
		"startHistoryId": {strconv.FormatUint(startHistoryID, 10)},
		"historyTypes":   {"messageAdded"},
	}
	var resp struct {
		History []struct {
			MessagesAdded []struct {
				Message struct {
					ID string `json:"id"`
				} `json:"message"`
			} `json:"messagesAdded"`
		} `json:"history"`
	}
	if err := g.do(ctx, http.MethodGet, "/history", query, nil, &resp); err != nil {
		return nil, err
	}

	var ids []string
	for _, h := range resp.History {
		for _, added := range h.MessagesAdded {
			if added.Message.ID != "" {
				ids = append(ids, added.Message.ID)
			}
		}
	}
	return ids, nil
}

// ListRecent returns the ids of the most recent n messages.
func (g *Gmail) ListRecent(ctx context.Context, n int) ([]string, error) {
	query := url.Values{"maxResults": {strconv.Itoa(n)}}
	var resp struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := g.do(ctx, http.MethodGet, "/messages", query, nil, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Get fetches the full envelope for a message id.
func (g *Gmail) Get(ctx context.Context, id string) (*Envelope, error) {
	query := url.Values{"format": {"full"}}
	var env Envelope
	if err := g.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(id), query, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Thread fetches all envelopes in a thread, oldest first.
func (g *Gmail) Thread(ctx context.Context, threadID string) ([]*Envelope, error) {
	query := url.Values{"format": {"full"}}
	var resp struct {
		Messages []*Envelope `json:"messages"`
	}
	if err := g.do(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID), query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Send transmits a raw message, base64url-encoded per the provider wire
// format. A non-empty threadID places the message in an existing thread.
func (g *Gmail) Send(ctx context.Context, raw []byte, threadID string) (*SendResult, error) {
	body := map[string]string{
		"raw": base64.URLEncoding.EncodeToString(raw),
	}
	if threadID != "" {
		body["threadId"] = threadID
	}
	var resp struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := g.do(ctx, http.MethodPost, "/messages/send", nil, body, &resp); err != nil {
		return nil, err
	}
	return &SendResult{MessageID: resp.ID, ThreadID: resp.ThreadID}, nil
}

// Watch (re)registers push notifications to the given topic.
func (g *Gmail) Watch(ctx context.Context, topic string) error {
	body := map[string]interface{}{
		"topicName": topic,
		"labelIds":  []string{"INBOX"},
	}
	return g.do(ctx, http.MethodPost, "/watch", nil, body, nil)
}

// do performs one API call with JSON encoding on both sides.
func (g *Gmail) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := g.baseURL + "/users/" + url.PathEscape(g.userID) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("mail: gmail: encode %s: %w", path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("mail: gmail: build request %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail: gmail: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail: gmail: %s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mail: gmail: decode %s: %w", path, err)
	}
	return nil
}
