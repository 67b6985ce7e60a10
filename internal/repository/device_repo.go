package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

// DeviceRepository persists device bindings.
type DeviceRepository interface {
	Bind(ctx context.Context, device models.Device) error
	GetByStudent(ctx context.Context, studentID string) (models.Device, error)
	FindStudentID(ctx context.Context, tokenHash string) (string, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, studentID string) error
}

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository constructs a device repository.
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

// Bind evicts every other student holding the same token hash and upserts the
// binding for device.StudentID in a single transaction.
func (r *deviceRepository) Bind(ctx context.Context, device models.Device) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_hash = ? AND student_id <> ?", device.TokenHash, device.StudentID).
			Delete(&models.Device{}).Error; err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token_hash", "registered_at", "user_agent", "device_type"}),
		}).Create(&device).Error
	})
	return translate(err)
}

func (r *deviceRepository) GetByStudent(ctx context.Context, studentID string) (models.Device, error) {
	var device models.Device
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&device).Error; err != nil {
		return models.Device{}, err
	}
	return device, nil
}

func (r *deviceRepository) FindStudentID(ctx context.Context, tokenHash string) (string, error) {
	var device models.Device
	if err := r.db.WithContext(ctx).Select("student_id").Where("token_hash = ?", tokenHash).First(&device).Error; err != nil {
		return "", err
	}
	return device.StudentID, nil
}

func (r *deviceRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Device{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *deviceRepository) Delete(ctx context.Context, studentID string) error {
	return r.db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&models.Device{}).Error
}
