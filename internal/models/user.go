// Package models defines the GORM models for Penpal's conversation data.
package models

import "time"

// User is one outreach recipient, keyed by email address. A row is created
// on first contact and UpdatedAt is refreshed on every upsert.
type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Email     string `gorm:"size:256;not null;uniqueIndex"`
	Name      string `gorm:"size:128;not null"`
	UpdatedAt time.Time
}
