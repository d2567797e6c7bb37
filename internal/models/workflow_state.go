package models

import "time"

// Workflow step bounds. Step 0 is the initial send; FinalStep is terminal.
const (
	InitialStep = 0
	FinalStep   = 4
)

// Workflow status labels written by the orchestrator.
const (
	StatusSentInitial = "sent_initial"
	StatusCompleted   = "completed"
)

// WorkflowState is the per-thread conversation position. A row is created
// when the initial outbound message is sent (step 0) and only the
// orchestrator mutates it afterwards. Step never decreases; step 4 is
// terminal and the row is never deleted.
type WorkflowState struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ThreadID  string `gorm:"size:128;not null;uniqueIndex"`
	Step      int    `gorm:"not null;default:0"`
	Status    string `gorm:"size:32;not null"`
	UpdatedAt time.Time
}
