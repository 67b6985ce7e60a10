package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

// Migrate creates or updates every table used by the service.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
