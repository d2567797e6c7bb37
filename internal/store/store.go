// Package store is the persistence collaborator for the conversation
// workflow: users, message history, and per-thread workflow state.
package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/penpalhq/penpal/internal/models"
)

// Store wraps a GORM connection with the operations the workflow engine
// needs. Callers treat every method as fallible and non-transactional.
type Store struct {
	db *gorm.DB
}

// New creates a Store.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &Store{db: db}, nil
}

// UpsertUser creates or refreshes a recipient row. UpdatedAt is set to now
// on both paths.
func (s *Store) UpsertUser(email, name string) error {
	if email == "" {
		return fmt.Errorf("store: upsert user: email is required")
	}
	user := models.User{
		Email:     email,
		Name:      name,
		UpdatedAt: time.Now(),
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&user)
	if result.Error != nil {
		return fmt.Errorf("store: upsert user %s: %w", email, result.Error)
	}
	return nil
}

// InsertMessage appends one message to a thread's history. The message_id
// column carries a unique index; a duplicate insert (notification
// redelivery) is detected via the conflict clause and treated as a no-op.
func (s *Store) InsertMessage(msg models.Message) error {
	if msg.MessageID == "" {
		return fmt.Errorf("store: insert message: message id is required")
	}
	if msg.ThreadID == "" {
		return fmt.Errorf("store: insert message: thread id is required")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoNothing: true,
	}).Create(&msg)
	if result.Error != nil {
		return fmt.Errorf("store: insert message %s: %w", msg.MessageID, result.Error)
	}
	return nil
}

// UpsertWorkflowState writes the per-thread {step, status} pair.
func (s *Store) UpsertWorkflowState(threadID string, step int, status string) error {
	if threadID == "" {
		return fmt.Errorf("store: upsert workflow state: thread id is required")
	}
	state := models.WorkflowState{
		ThreadID:  threadID,
		Step:      step,
		Status:    status,
		UpdatedAt: time.Now(),
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"step", "status", "updated_at"}),
	}).Create(&state)
	if result.Error != nil {
		return fmt.Errorf("store: upsert workflow state %s: %w", threadID, result.Error)
	}
	return nil
}

// GetWorkflowState loads the state row for a thread. Returns (nil, nil)
// when the thread is unknown.
func (s *Store) GetWorkflowState(threadID string) (*models.WorkflowState, error) {
	var state models.WorkflowState
	err := s.db.Where("thread_id = ?", threadID).First(&state).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get workflow state %s: %w", threadID, err)
	}
	return &state, nil
}

// ThreadMessages returns a thread's history ordered by timestamp.
func (s *Store) ThreadMessages(threadID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.Where("thread_id = ?", threadID).
		Order("timestamp ASC, id ASC").Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("store: thread messages %s: %w", threadID, err)
	}
	return msgs, nil
}

// AllWorkflowStates returns every thread's state ordered by last activity,
// newest first. Used by the status command and the dashboard.
func (s *Store) AllWorkflowStates() ([]models.WorkflowState, error) {
	var states []models.WorkflowState
	err := s.db.Order("updated_at DESC").Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("store: list workflow states: %w", err)
	}
	return states, nil
}

// UserByEmail loads a recipient by email. Returns (nil, nil) when unknown.
func (s *Store) UserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: user by email %s: %w", email, err)
	}
	return &user, nil
}

// ThreadUserEmail returns the recipient email recorded on a thread's
// earliest message, or empty when the thread has no history yet.
func (s *Store) ThreadUserEmail(threadID string) (string, error) {
	var msg models.Message
	err := s.db.Where("thread_id = ?", threadID).
		Order("timestamp ASC, id ASC").First(&msg).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: thread user email %s: %w", threadID, err)
	}
	return msg.UserEmail, nil
}
