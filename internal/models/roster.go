package models

import "time"

// Student is a roster entry. The identifier is derived from name, surname and
// group so it stays stable across re-imports.
type Student struct {
	ID          string       `gorm:"primaryKey;size:64" json:"id"`
	Name        string       `gorm:"size:255;not null" json:"name"`
	Surname     string       `gorm:"size:255;not null" json:"surname"`
	Group       string       `gorm:"column:group_name;size:64;not null;index" json:"group"`
	BarcodeHash *string      `gorm:"size:64;index" json:"-"`
	CreatedAt   time.Time    `json:"created_at"`
	Device      *Device      `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	Attendance  []Attendance `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
}

// DisplayName renders the student the way rosters list them: surname first.
func (s Student) DisplayName() string {
	return s.Surname + " " + s.Name
}

// Device binds a hashed device secret to exactly one student.
type Device struct {
	StudentID    string    `gorm:"primaryKey;size:64" json:"student_id"`
	TokenHash    string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	RegisteredAt time.Time `gorm:"not null" json:"registered_at"`
	UserAgent    string    `gorm:"size:512" json:"user_agent"`
	DeviceType   string    `gorm:"size:16;not null" json:"device_type"`
}

// DeviceCooldown stores the last sensitive action performed by a device.
type DeviceCooldown struct {
	TokenHash  string    `gorm:"primaryKey;size:64"`
	LastAction time.Time `gorm:"not null;index"`
}

// Teacher is an instructor or administrator account.
type Teacher struct {
	Username        string `gorm:"primaryKey;size:64" json:"username"`
	PasswordHash    string `gorm:"size:255;not null" json:"-"`
	DisplayName     string `gorm:"size:255;not null" json:"display_name"`
	Role            string `gorm:"size:16;not null" json:"role"`
	PasswordChanged bool   `gorm:"not null;default:false" json:"password_changed"`
}

// Teacher roles.
const (
	TeacherRoleAdmin   = "admin"
	TeacherRoleTeacher = "teacher"
)
