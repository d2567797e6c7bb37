package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/penpalhq/penpal/internal/mail"
)

func TestDecodeNotification(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    uint64
		wantErr bool
	}{
		{"number", `{"emailAddress":"agent@example.com","historyId":4200}`, 4200, false},
		{"string", `{"emailAddress":"agent@example.com","historyId":"4200"}`, 4200, false},
		{"missing", `{"emailAddress":"agent@example.com"}`, 0, true},
		{"garbage", `not json`, 0, true},
		{"non numeric", `{"historyId":"abc"}`, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := DecodeNotification([]byte(tc.payload))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeNotification: %v", err)
			}
			if uint64(n.HistoryID) != tc.want {
				t.Fatalf("historyId = %d, want %d", n.HistoryID, tc.want)
			}
		})
	}
}

func TestIngestor_ResolveWindow(t *testing.T) {
	fake := mail.NewFake("agent@example.com")
	for i := 0; i < 10; i++ {
		fake.Deliver(&mail.Envelope{ThreadID: "t"})
	}

	ing, err := NewIngestor(IngestorOpts{Mailbox: fake, Lookback: 3, Recent: 5})
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}

	ids := ing.Resolve(context.Background(), fake.HistoryID())
	// Lookback 3 below position 10 starts the window at 7.
	if len(ids) != 4 {
		t.Fatalf("got %d ids, want 4", len(ids))
	}
}

func TestIngestor_ResolveFloorsAtOne(t *testing.T) {
	fake := mail.NewFake("agent@example.com")
	fake.Deliver(&mail.Envelope{ThreadID: "t"})

	ing, err := NewIngestor(IngestorOpts{Mailbox: fake, Lookback: 100, Recent: 5})
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}

	ids := ing.Resolve(context.Background(), 2)
	if len(ids) != 1 {
		t.Fatalf("got %d ids, want 1", len(ids))
	}
}

// failingHistory wraps a Fake and fails the History call.
type failingHistory struct {
	*mail.Fake
	recentErr error
}

func (f *failingHistory) History(ctx context.Context, start uint64) ([]string, error) {
	return nil, errors.New("history expired")
}

func (f *failingHistory) ListRecent(ctx context.Context, n int) ([]string, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.Fake.ListRecent(ctx, n)
}

func TestIngestor_FallbackToRecent(t *testing.T) {
	fake := mail.NewFake("agent@example.com")
	fake.Deliver(&mail.Envelope{ID: "m1", ThreadID: "t"})
	fake.Deliver(&mail.Envelope{ID: "m2", ThreadID: "t"})

	ing, err := NewIngestor(IngestorOpts{Mailbox: &failingHistory{Fake: fake}, Recent: 5})
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}

	ids := ing.Resolve(context.Background(), 100)
	if len(ids) != 2 {
		t.Fatalf("got %d ids from fallback, want 2", len(ids))
	}
}

func TestIngestor_BothPathsFailDropsSilently(t *testing.T) {
	fake := mail.NewFake("agent@example.com")
	mb := &failingHistory{Fake: fake, recentErr: errors.New("listing down")}

	ing, err := NewIngestor(IngestorOpts{Mailbox: mb})
	if err != nil {
		t.Fatalf("NewIngestor: %v", err)
	}

	if ids := ing.Resolve(context.Background(), 100); ids != nil {
		t.Fatalf("expected nil, got %v", ids)
	}
}

func TestEventAck(t *testing.T) {
	acked := 0
	ev := NewEvent([]byte("{}"), func() error {
		acked++
		return nil
	})
	if err := ev.Ack(); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if acked != 1 {
		t.Fatalf("acked = %d", acked)
	}

	bare := NewEvent(nil, nil)
	if err := bare.Ack(); err != nil {
		t.Fatalf("bare Ack: %v", err)
	}
}
