package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

// TeacherRepository stores instructor accounts.
type TeacherRepository interface {
	Get(ctx context.Context, username string) (models.Teacher, error)
	Save(ctx context.Context, teacher models.Teacher) error
	UpdatePassword(ctx context.Context, username, passwordHash string, changed bool) error
	Count(ctx context.Context) (int64, error)
	AnyUsingDefaultPassword(ctx context.Context) (bool, error)
}

type teacherRepository struct {
	db *gorm.DB
}

// NewTeacherRepository constructs a teacher repository.
func NewTeacherRepository(db *gorm.DB) TeacherRepository {
	return &teacherRepository{db: db}
}

func (r *teacherRepository) Get(ctx context.Context, username string) (models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&teacher).Error; err != nil {
		return models.Teacher{}, err
	}
	return teacher, nil
}

func (r *teacherRepository) Save(ctx context.Context, teacher models.Teacher) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "display_name", "role", "password_changed"}),
	}).Create(&teacher).Error
}

func (r *teacherRepository) UpdatePassword(ctx context.Context, username, passwordHash string, changed bool) error {
	result := r.db.WithContext(ctx).Model(&models.Teacher{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"password_hash":    passwordHash,
			"password_changed": changed,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *teacherRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Teacher{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *teacherRepository) AnyUsingDefaultPassword(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Teacher{}).Where("password_changed = ?", false).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
