package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestGmail(t *testing.T, handler http.Handler) (*Gmail, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g, err := NewGmail(GmailOpts{
		BaseURL:    srv.URL,
		UserID:     "me",
		HTTPClient: srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewGmail: %v", err)
	}
	return g, srv
}

func TestGmail_Profile(t *testing.T) {
	g, _ := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/profile" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"emailAddress": "agent@example.com"})
	}))

	addr, err := g.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if addr != "agent@example.com" {
		t.Fatalf("address = %q", addr)
	}
}

func TestGmail_History(t *testing.T) {
	g, _ := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("startHistoryId"); got != "4200" {
			t.Errorf("startHistoryId = %q", got)
		}
		if got := r.URL.Query().Get("historyTypes"); got != "messageAdded" {
			t.Errorf("historyTypes = %q", got)
		}
		w.Write([]byte(`{"history":[{"messagesAdded":[{"message":{"id":"m1"}},{"message":{"id":"m2"}}]},{"messagesAdded":[{"message":{"id":"m3"}}]}]}`))
	}))

	ids, err := g.History(context.Background(), 4200)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(ids) != 3 || ids[0] != "m1" || ids[2] != "m3" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestGmail_HistoryExpired(t *testing.T) {
	g, _ := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"history not found"}}`, http.StatusNotFound)
	}))

	if _, err := g.History(context.Background(), 1); err == nil {
		t.Fatal("expected error for expired history id")
	}
}

func TestGmail_ListRecent(t *testing.T) {
	g, _ := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("maxResults"); got != "5" {
			t.Errorf("maxResults = %q", got)
		}
		w.Write([]byte(`{"messages":[{"id":"new"},{"id":"old"}]}`))
	}))

	ids, err := g.ListRecent(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(ids) != 2 || ids[0] != "new" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestGmail_Get(t *testing.T) {
	g, _ := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/messages/m1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("format"); got != "full" {
			t.Errorf("format = %q", got)
		}
		w.Write([]byte(`{"id":"m1","threadId":"t1","snippet":"hi","payload":{"mimeType":"text/plain","headers":[{"name":"From","value":"jane@example.com"}],"body":{"data":"aGk"}}}`))
	}))

	env, err := g.Get(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if env.ThreadID != "t1" {
		t.Fatalf("thread id = %q", env.ThreadID)
	}
	if env.Header("From") != "jane@example.com" {
		t.Fatalf("from = %q", env.Header("From"))
	}
	if got := ExtractBody(env); got != "hi" {
		t.Fatalf("body = %q", got)
	}
}

func TestGmail_Send(t *testing.T) {
	raw := []byte("To: jane@example.com\r\n\r\nbody")
	g, _ := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/me/messages/send" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req struct {
			Raw      string `json:"raw"`
			ThreadID string `json:"threadId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		decoded, err := base64.URLEncoding.DecodeString(req.Raw)
		if err != nil {
			t.Errorf("raw not base64url: %v", err)
		}
		if string(decoded) != string(raw) {
			t.Errorf("raw = %q", decoded)
		}
		if req.ThreadID != "t1" {
			t.Errorf("threadId = %q", req.ThreadID)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "sent1", "threadId": "t1"})
	}))

	res, err := g.Send(context.Background(), raw, "t1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "sent1" || res.ThreadID != "t1" {
		t.Fatalf("result = %+v", res)
	}
}

func TestGmail_Watch(t *testing.T) {
	var got map[string]interface{}
	g, _ := newTestGmail(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/watch" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"historyId":"99","expiration":"1700000000000"}`))
	}))

	if err := g.Watch(context.Background(), "projects/p/topics/mail"); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if got["topicName"] != "projects/p/topics/mail" {
		t.Fatalf("topicName = %v", got["topicName"])
	}
}

func TestNewGmail_PreservesInjectedClient(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	if _, err := NewGmail(GmailOpts{BaseURL: "https://example.com", HTTPClient: client}); err != nil {
		t.Fatalf("NewGmail: %v", err)
	}
	if client.Timeout != 5*time.Second {
		t.Fatalf("injected client timeout changed to %v", client.Timeout)
	}
}

func TestNewGmail_Validation(t *testing.T) {
	if _, err := NewGmail(GmailOpts{}); err == nil {
		t.Fatal("expected error for missing base url")
	}
	if _, err := NewGmail(GmailOpts{BaseURL: "https://example.com"}); err == nil {
		t.Fatal("expected error for missing token source")
	}
}
