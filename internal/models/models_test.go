package models

import (
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestUser_Fields(t *testing.T) {
	typ := reflect.TypeOf(User{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Email", "uniqueIndex")
	assertGormTag(t, typ, "Email", "not null")
	assertGormTag(t, typ, "Name", "not null")
	assertFieldType(t, typ, "UpdatedAt", "time.Time")
}

func TestMessage_Fields(t *testing.T) {
	typ := reflect.TypeOf(Message{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "MessageID", "uniqueIndex")
	assertGormTag(t, typ, "MessageID", "not null")
	assertGormTag(t, typ, "ThreadID", "index")
	assertGormTag(t, typ, "ThreadID", "not null")
	assertGormTag(t, typ, "Sender", "size:8")
	assertGormTag(t, typ, "Body", "type:text")
	assertGormTag(t, typ, "Timestamp", "index")
	assertFieldType(t, typ, "Timestamp", "time.Time")
}

func TestWorkflowState_Fields(t *testing.T) {
	typ := reflect.TypeOf(WorkflowState{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ThreadID", "uniqueIndex")
	assertGormTag(t, typ, "ThreadID", "not null")
	assertGormTag(t, typ, "Step", "default:0")
	assertGormTag(t, typ, "Status", "not null")
}

func TestStepBounds(t *testing.T) {
	if InitialStep != 0 {
		t.Errorf("InitialStep = %d, want 0", InitialStep)
	}
	if FinalStep != 4 {
		t.Errorf("FinalStep = %d, want 4", FinalStep)
	}
}

func TestSenderValues(t *testing.T) {
	if SenderUser == SenderAgent {
		t.Fatal("sender values must differ")
	}
	for _, s := range []string{SenderUser, SenderAgent} {
		if len(s) > 8 {
			t.Errorf("sender %q exceeds column size 8", s)
		}
	}
}
