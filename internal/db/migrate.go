package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/penpalhq/penpal/internal/models"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Message{},
		&models.WorkflowState{},
	}
}

// AutoMigrate creates or updates all conversation tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
