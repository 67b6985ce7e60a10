package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

// QRTokenRepository persists issued QR tokens.
type QRTokenRepository interface {
	Create(ctx context.Context, token *models.QRToken) error
	Get(ctx context.Context, token string) (models.QRToken, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type qrTokenRepository struct {
	db *gorm.DB
}

// NewQRTokenRepository constructs a QR token repository.
func NewQRTokenRepository(db *gorm.DB) QRTokenRepository {
	return &qrTokenRepository{db: db}
}

func (r *qrTokenRepository) Create(ctx context.Context, token *models.QRToken) error {
	return translate(r.db.WithContext(ctx).Create(token).Error)
}

func (r *qrTokenRepository) Get(ctx context.Context, token string) (models.QRToken, error) {
	var record models.QRToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&record).Error; err != nil {
		return models.QRToken{}, err
	}
	return record, nil
}

// DeleteOlderThan removes tokens created strictly before cutoff.
func (r *qrTokenRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.QRToken{})
	return result.RowsAffected, result.Error
}
