package models

import (
	"time"

	"gorm.io/datatypes"
)

// Attendance sources recorded in the context column.
const (
	AttendanceSourceQR      = "qr"
	AttendanceSourceBarcode = "barcode"
	AttendanceSourceManual  = "manual"
)

// Attendance is a single presence record. A student is recorded at most once
// per lesson.
type Attendance struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	StudentID string            `gorm:"size:64;not null;uniqueIndex:idx_attendance_student_lesson;index" json:"student_id"`
	LessonID  string            `gorm:"size:128;not null;uniqueIndex:idx_attendance_student_lesson;index" json:"lesson_id"`
	Timestamp time.Time         `gorm:"not null;index" json:"timestamp"`
	Context   datatypes.JSONMap `json:"context,omitempty"`
}

// TableName keeps the singular table name used by reports.
func (Attendance) TableName() string {
	return "attendance"
}

// QRToken is a short-lived attendance code bound to a lesson and classroom.
type QRToken struct {
	Token     string    `gorm:"primaryKey;size:64" json:"token"`
	LessonID  string    `gorm:"size:128;not null" json:"lesson_id"`
	Classroom string    `gorm:"size:64;not null" json:"classroom"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// AllModels lists every table managed by the service, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Student{},
		&Device{},
		&Attendance{},
		&Teacher{},
		&DeviceCooldown{},
		&QRToken{},
	}
}
