package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

// CooldownRepository tracks the last sensitive action per device hash.
type CooldownRepository interface {
	LastAction(ctx context.Context, tokenHash string) (time.Time, error)
	Touch(ctx context.Context, tokenHash string, at time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type cooldownRepository struct {
	db *gorm.DB
}

// NewCooldownRepository constructs a cooldown repository.
func NewCooldownRepository(db *gorm.DB) CooldownRepository {
	return &cooldownRepository{db: db}
}

func (r *cooldownRepository) LastAction(ctx context.Context, tokenHash string) (time.Time, error) {
	var cooldown models.DeviceCooldown
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&cooldown).Error; err != nil {
		return time.Time{}, err
	}
	return cooldown.LastAction, nil
}

func (r *cooldownRepository) Touch(ctx context.Context, tokenHash string, at time.Time) error {
	return upsertCooldown(r.db.WithContext(ctx), tokenHash, at)
}

func (r *cooldownRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("last_action < ?", cutoff).Delete(&models.DeviceCooldown{})
	return result.RowsAffected, result.Error
}

func upsertCooldown(db *gorm.DB, tokenHash string, at time.Time) error {
	cooldown := models.DeviceCooldown{TokenHash: tokenHash, LastAction: at}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_action"}),
	}).Create(&cooldown).Error
}
