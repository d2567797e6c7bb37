package models

import "time"

// Sender values for Message rows.
const (
	SenderUser  = "user"
	SenderAgent = "agent"
)

// Message is one entry in a thread's append-only history. MessageID is the
// provider-assigned identifier; the unique index makes duplicate inserts
// under notification redelivery detectable.
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	MessageID string    `gorm:"size:128;not null;uniqueIndex"`
	ThreadID  string    `gorm:"size:128;not null;index"`
	UserEmail string    `gorm:"size:256;index"`
	Sender    string    `gorm:"size:8;not null"` // "user" or "agent"
	Body      string    `gorm:"type:text;not null"`
	Subject   string    `gorm:"size:256"`
	Timestamp time.Time `gorm:"not null;index"`
}
