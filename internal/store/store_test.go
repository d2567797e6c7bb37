package store

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/penpalhq/penpal/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Message{}, &models.WorkflowState{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	s, err := New(db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_RequiresDB(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestUpsertUser_CreateThenRefresh(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertUser("alice@example.com", "Alice"); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	first, err := s.UserByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if first == nil || first.Name != "Alice" {
		t.Fatalf("user = %+v, want Alice", first)
	}

	// Second upsert updates name and refreshes updated_at, no second row.
	time.Sleep(5 * time.Millisecond)
	if err := s.UpsertUser("alice@example.com", "Alice Liddell"); err != nil {
		t.Fatalf("second UpsertUser: %v", err)
	}
	second, err := s.UserByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if second.Name != "Alice Liddell" {
		t.Errorf("Name = %q, want updated name", second.Name)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("UpdatedAt not refreshed: %v then %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestUpsertUser_RequiresEmail(t *testing.T) {
	s := openTestStore(t)
	if err := s.UpsertUser("", "Nobody"); err == nil {
		t.Fatal("expected error for empty email")
	}
}

func TestInsertMessage_DuplicateIsNoop(t *testing.T) {
	s := openTestStore(t)

	msg := models.Message{
		MessageID: "m1",
		ThreadID:  "t1",
		Sender:    models.SenderAgent,
		Body:      "hello",
		Subject:   "Hi",
		Timestamp: time.Now(),
	}
	if err := s.InsertMessage(msg); err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}

	// Redelivery: same provider message id again.
	msg.Body = "hello again"
	if err := s.InsertMessage(msg); err != nil {
		t.Fatalf("duplicate InsertMessage: %v", err)
	}

	msgs, err := s.ThreadMessages("t1")
	if err != nil {
		t.Fatalf("ThreadMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1", len(msgs))
	}
	if msgs[0].Body != "hello" {
		t.Errorf("Body = %q, want original body preserved", msgs[0].Body)
	}
}

func TestInsertMessage_Validation(t *testing.T) {
	s := openTestStore(t)
	if err := s.InsertMessage(models.Message{ThreadID: "t1"}); err == nil {
		t.Fatal("expected error for missing message id")
	}
	if err := s.InsertMessage(models.Message{MessageID: "m1"}); err == nil {
		t.Fatal("expected error for missing thread id")
	}
}

func TestThreadMessages_Ordered(t *testing.T) {
	s := openTestStore(t)

	base := time.Now()
	for i, m := range []models.Message{
		{MessageID: "m2", ThreadID: "t1", Sender: models.SenderUser, Body: "second", Timestamp: base.Add(time.Minute)},
		{MessageID: "m1", ThreadID: "t1", Sender: models.SenderAgent, Body: "first", Timestamp: base},
		{MessageID: "m3", ThreadID: "t2", Sender: models.SenderAgent, Body: "other thread", Timestamp: base},
	} {
		if err := s.InsertMessage(m); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	msgs, err := s.ThreadMessages("t1")
	if err != nil {
		t.Fatalf("ThreadMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Body != "first" || msgs[1].Body != "second" {
		t.Errorf("order = [%q, %q], want [first, second]", msgs[0].Body, msgs[1].Body)
	}
}

func TestWorkflowState_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	state, err := s.GetWorkflowState("t1")
	if err != nil {
		t.Fatalf("GetWorkflowState: %v", err)
	}
	if state != nil {
		t.Fatalf("state = %+v, want nil for unknown thread", state)
	}

	if err := s.UpsertWorkflowState("t1", 0, models.StatusSentInitial); err != nil {
		t.Fatalf("UpsertWorkflowState: %v", err)
	}
	state, err = s.GetWorkflowState("t1")
	if err != nil {
		t.Fatalf("GetWorkflowState: %v", err)
	}
	if state == nil || state.Step != 0 || state.Status != models.StatusSentInitial {
		t.Fatalf("state = %+v, want step 0 sent_initial", state)
	}

	if err := s.UpsertWorkflowState("t1", 1, "sent_followup_1"); err != nil {
		t.Fatalf("second UpsertWorkflowState: %v", err)
	}
	state, err = s.GetWorkflowState("t1")
	if err != nil {
		t.Fatalf("GetWorkflowState: %v", err)
	}
	if state.Step != 1 || state.Status != "sent_followup_1" {
		t.Errorf("state = %+v, want step 1 sent_followup_1", state)
	}

	states, err := s.AllWorkflowStates()
	if err != nil {
		t.Fatalf("AllWorkflowStates: %v", err)
	}
	if len(states) != 1 {
		t.Errorf("len(states) = %d, want 1", len(states))
	}
}

func TestThreadUserEmail(t *testing.T) {
	s := openTestStore(t)

	email, err := s.ThreadUserEmail("t1")
	if err != nil {
		t.Fatalf("ThreadUserEmail: %v", err)
	}
	if email != "" {
		t.Errorf("email = %q, want empty for unknown thread", email)
	}

	base := time.Now()
	s.InsertMessage(models.Message{MessageID: "m1", ThreadID: "t1", UserEmail: "alice@example.com", Sender: models.SenderAgent, Body: "hi", Timestamp: base})
	s.InsertMessage(models.Message{MessageID: "m2", ThreadID: "t1", UserEmail: "alice@example.com", Sender: models.SenderUser, Body: "yo", Timestamp: base.Add(time.Minute)})

	email, err = s.ThreadUserEmail("t1")
	if err != nil {
		t.Fatalf("ThreadUserEmail: %v", err)
	}
	if email != "alice@example.com" {
		t.Errorf("email = %q, want alice@example.com", email)
	}
}
