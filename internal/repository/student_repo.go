package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

// StudentFilter narrows roster listings.
type StudentFilter struct {
	Group  string
	Search string
}

// StudentRepository provides access to roster records.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id string) (models.Student, error)
	GetByBarcodeHash(ctx context.Context, hash string) (models.Student, error)
	FindByDisplayName(ctx context.Context, displayName, group string) (models.Student, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter StudentFilter) ([]models.Student, error)
	Groups(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return translate(r.db.WithContext(ctx).Create(student).Error)
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) GetByBarcodeHash(ctx context.Context, hash string) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).Where("barcode_hash = ?", hash).First(&student).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) FindByDisplayName(ctx context.Context, displayName, group string) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Where("surname || ' ' || name = ?", displayName).
		Where("group_name = ?", group).
		First(&student).Error
	if err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Student{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *studentRepository) List(ctx context.Context, filter StudentFilter) ([]models.Student, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{}).Preload("Device")

	if filter.Group != "" {
		query = query.Where("group_name = ?", filter.Group)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(surname) LIKE ?", like, like)
	}

	var students []models.Student
	if err := query.Order("LOWER(surname), LOWER(name)").Find(&students).Error; err != nil {
		return nil, err
	}

	return students, nil
}

func (r *studentRepository) Groups(ctx context.Context) ([]string, error) {
	var groups []string
	err := r.db.WithContext(ctx).Model(&models.Student{}).
		Distinct("group_name").
		Where("group_name <> ''").
		Order("group_name").
		Pluck("group_name", &groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *studentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Student{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Delete removes the student together with its device binding and attendance.
func (r *studentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", id).Delete(&models.Attendance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id = ?", id).Delete(&models.Device{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Student{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
