package dto

import "time"

// QRIssueRequest asks for a new attendance token. Repeated calls with the same
// session id rotate the code for one projected session.
type QRIssueRequest struct {
	LessonID         string   `json:"lesson_id" validate:"required,max=128"`
	Classroom        string   `json:"classroom" validate:"required,max=64"`
	SessionID        string   `json:"session_id" validate:"omitempty,max=64"`
	SessionStartTime *float64 `json:"session_start_time" validate:"omitempty,gt=0"`
}

// QRTokenResponse is the payload the projector renders. Times are unix seconds.
type QRTokenResponse struct {
	Token            string  `json:"token"`
	DisplayCode      string  `json:"display_code"`
	VerifyURL        string  `json:"verify_url"`
	QRImage          string  `json:"qr_image"`
	ExpiresAt        float64 `json:"expires_at"`
	SessionID        string  `json:"session_id"`
	SessionStartTime float64 `json:"session_start_time"`
	SessionExpiresAt float64 `json:"session_expires_at"`
	LessonID         string  `json:"lesson_id"`
	Classroom        string  `json:"classroom"`
}

// RegistrationQRResponse points students at the enrolment page.
type RegistrationQRResponse struct {
	URL     string `json:"url"`
	QRImage string `json:"qr_image"`
}

// ScanRequest is a student's attendance claim.
type ScanRequest struct {
	QRToken      string   `json:"qr_token" validate:"required,max=256"`
	DeviceToken  string   `json:"device_token" validate:"required,max=256"`
	Latitude     *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude" validate:"omitempty,longitude"`
	PeerIP       string   `json:"-"`
	ForwardedFor string   `json:"-"`
}

// ScanResult describes a recorded attendance.
type ScanResult struct {
	StudentName    string    `json:"student_name"`
	LessonID       string    `json:"lesson_id"`
	Classroom      string    `json:"classroom"`
	DistanceMeters float64   `json:"distance_meters"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// ToggleAttendanceRequest flips a student's presence for a lesson. The student
// is addressed by id, or by "surname name" display name plus group.
type ToggleAttendanceRequest struct {
	StudentID   string `json:"student_id" validate:"omitempty,max=64"`
	StudentName string `json:"student_name" validate:"required_without=StudentID,max=256"`
	Group       string `json:"group" validate:"max=32"`
	LessonID    string `json:"lesson_id" validate:"required,max=128"`
}

// ToggleAttendanceResponse reports the presence state after a toggle.
type ToggleAttendanceResponse struct {
	StudentID string `json:"student_id"`
	LessonID  string `json:"lesson_id"`
	IsPresent bool   `json:"is_present"`
}

// BarcodeMarkRequest marks attendance from a scanned student card.
type BarcodeMarkRequest struct {
	Barcode  string `json:"barcode" validate:"required,len=8,numeric"`
	LessonID string `json:"lesson_id" validate:"required,max=128"`
}

// AttendanceListRequest filters the attendance listing. Date is YYYY-MM-DD.
type AttendanceListRequest struct {
	Date     string `query:"date" validate:"omitempty,datetime=2006-01-02"`
	LessonID string `query:"lesson" validate:"max=128"`
	Group    string `query:"group" validate:"max=32"`
}

// AttendanceEntry is one line of the attendance listing.
type AttendanceEntry struct {
	StudentID string     `json:"student_id"`
	Name      string     `json:"name"`
	Group     string     `json:"group"`
	LessonID  string     `json:"lesson_id"`
	Timestamp *time.Time `json:"timestamp"`
	IsPresent bool       `json:"is_present"`
}

// AttendanceStats summarises a roster view.
type AttendanceStats struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// AttendanceListResponse is the attendance listing with the available filters.
// Stats is set when both a lesson and a group are selected.
type AttendanceListResponse struct {
	Items      []AttendanceEntry `json:"items"`
	Lessons    []string          `json:"lessons"`
	Groups     []string          `json:"groups"`
	ShowStatus bool              `json:"show_status"`
	Stats      *AttendanceStats  `json:"stats,omitempty"`
}

// DashboardResponse summarises the system for the admin landing page.
type DashboardResponse struct {
	TotalStudents     int64             `json:"total_students"`
	RegisteredDevices int64             `json:"registered_devices"`
	TotalRecords      int64             `json:"total_records"`
	Recent            []AttendanceEntry `json:"recent"`
}
