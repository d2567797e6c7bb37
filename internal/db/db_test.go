package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/penpalhq/penpal/internal/config"
	"github.com/penpalhq/penpal/internal/models"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{User: "root", Host: "127.0.0.1", Port: 3306, Name: "penpal"}
	got := DSN(cfg)
	want := "root@tcp(127.0.0.1:3306)/penpal?parseTime=true"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestConnect_Sqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penpal.db")
	db, err := Connect(config.DatabaseConfig{Driver: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("error = %q", err)
	}
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	for _, m := range AllModels() {
		if !db.Migrator().HasTable(m) {
			t.Errorf("missing table for %T", m)
		}
	}
}

func TestAutoMigrate_UniqueMessageID(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	msg := models.Message{MessageID: "m1", ThreadID: "t1", Sender: models.SenderAgent, Body: "hi"}
	if err := db.Create(&msg).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	dup := models.Message{MessageID: "m1", ThreadID: "t1", Sender: models.SenderUser, Body: "again"}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatal("expected unique constraint violation on message_id")
	}
}
