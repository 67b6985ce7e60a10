package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

// AttendanceFilter narrows attendance listings.
type AttendanceFilter struct {
	LessonID string
	Group    string
	From     *time.Time
	To       *time.Time
	Limit    int
	Newest   bool
}

// AttendanceRow is an attendance record joined with the roster entry.
type AttendanceRow struct {
	StudentID string
	Name      string
	Surname   string
	Group     string
	LessonID  string
	Timestamp time.Time
}

// AttendanceRepository persists presence records.
type AttendanceRepository interface {
	Create(ctx context.Context, record *models.Attendance) error
	CreateWithCooldown(ctx context.Context, record *models.Attendance, tokenHash string) error
	Exists(ctx context.Context, studentID, lessonID string) (bool, error)
	Delete(ctx context.Context, studentID, lessonID string) (bool, error)
	List(ctx context.Context, filter AttendanceFilter) ([]AttendanceRow, error)
	ForLesson(ctx context.Context, lessonID string) (map[string]models.Attendance, error)
	Lessons(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository constructs an attendance repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) Create(ctx context.Context, record *models.Attendance) error {
	return translate(r.db.WithContext(ctx).Create(record).Error)
}

// CreateWithCooldown inserts the record and stamps the device cooldown with the
// record timestamp. Either both writes land or neither does.
func (r *attendanceRepository) CreateWithCooldown(ctx context.Context, record *models.Attendance, tokenHash string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return upsertCooldown(tx, tokenHash, record.Timestamp)
	})
	return translate(err)
}

func (r *attendanceRepository) Exists(ctx context.Context, studentID, lessonID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Attendance{}).
		Where("student_id = ? AND lesson_id = ?", studentID, lessonID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *attendanceRepository) Delete(ctx context.Context, studentID, lessonID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("student_id = ? AND lesson_id = ?", studentID, lessonID).
		Delete(&models.Attendance{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *attendanceRepository) List(ctx context.Context, filter AttendanceFilter) ([]AttendanceRow, error) {
	query := r.db.WithContext(ctx).
		Table("attendance").
		Select(`attendance.student_id, COALESCE(students.name, '') AS name, COALESCE(students.surname, '') AS surname, ` +
			`COALESCE(students.group_name, '') AS "group", attendance.lesson_id, attendance.timestamp`).
		Joins("LEFT JOIN students ON students.id = attendance.student_id")

	if filter.LessonID != "" {
		query = query.Where("attendance.lesson_id = ?", filter.LessonID)
	}
	if filter.Group != "" {
		query = query.Where("students.group_name = ?", filter.Group)
	}
	if filter.From != nil {
		query = query.Where("attendance.timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("attendance.timestamp < ?", *filter.To)
	}

	if filter.Newest {
		query = query.Order("attendance.timestamp DESC")
	} else {
		query = query.Order("attendance.timestamp ASC")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []AttendanceRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *attendanceRepository) ForLesson(ctx context.Context, lessonID string) (map[string]models.Attendance, error) {
	var records []models.Attendance
	if err := r.db.WithContext(ctx).Where("lesson_id = ?", lessonID).Find(&records).Error; err != nil {
		return nil, err
	}

	result := make(map[string]models.Attendance, len(records))
	for _, record := range records {
		result[record.StudentID] = record
	}
	return result, nil
}

// Lessons returns lesson identifiers, most recently started first.
func (r *attendanceRepository) Lessons(ctx context.Context) ([]string, error) {
	var lessons []string
	err := r.db.WithContext(ctx).Model(&models.Attendance{}).
		Group("lesson_id").
		Order("MIN(timestamp) DESC").
		Pluck("lesson_id", &lessons).Error
	if err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *attendanceRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Attendance{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
