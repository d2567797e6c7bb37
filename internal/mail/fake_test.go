package mail

import (
	"context"
	"testing"
)

func TestFake_SendAppearsInThread(t *testing.T) {
	fake := NewFake("agent@example.com")
	ctx := context.Background()

	res, err := fake.Send(ctx, BuildOutgoing("jane@example.com", "Hello", "<p>Hi</p>"), "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID == "" || res.ThreadID == "" {
		t.Fatalf("result = %+v", res)
	}

	msgs, err := fake.Thread(ctx, res.ThreadID)
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("thread has %d messages", len(msgs))
	}
	if got := msgs[0].Header("From"); got != "agent@example.com" {
		t.Fatalf("from = %q", got)
	}
	if got := msgs[0].Header("To"); got != "jane@example.com" {
		t.Fatalf("to = %q", got)
	}
}

func TestFake_HistoryWindow(t *testing.T) {
	fake := NewFake("agent@example.com")

	fake.Deliver(&Envelope{ID: "m1", ThreadID: "t1"})
	mark := fake.HistoryID()
	fake.Deliver(&Envelope{ID: "m2", ThreadID: "t1"})
	fake.Deliver(&Envelope{ID: "m3", ThreadID: "t2"})

	ids, err := fake.History(context.Background(), mark+1)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(ids) != 2 || ids[0] != "m2" || ids[1] != "m3" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestFake_ListRecentNewestFirst(t *testing.T) {
	fake := NewFake("agent@example.com")
	fake.Deliver(&Envelope{ID: "m1", ThreadID: "t1"})
	fake.Deliver(&Envelope{ID: "m2", ThreadID: "t1"})
	fake.Deliver(&Envelope{ID: "m3", ThreadID: "t1"})

	ids, err := fake.ListRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(ids) != 2 || ids[0] != "m3" || ids[1] != "m2" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestFake_FailSends(t *testing.T) {
	fake := NewFake("agent@example.com")
	fake.FailSends = 1

	if _, err := fake.Send(context.Background(), []byte("raw"), ""); err == nil {
		t.Fatal("expected injected failure")
	}
	if _, err := fake.Send(context.Background(), []byte("raw"), ""); err != nil {
		t.Fatalf("second send: %v", err)
	}
}
