package dto

import (
	"time"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

// EnrollRequest registers a student and binds the calling device.
type EnrollRequest struct {
	Name        string `json:"name" validate:"required,max=100,excludesall=0x7C"`
	Surname     string `json:"surname" validate:"required,max=100,excludesall=0x7C"`
	Group       string `json:"group" validate:"required,max=32,excludesall=0x7C"`
	Barcode     string `json:"barcode" validate:"omitempty,len=8,numeric"`
	DeviceToken string `json:"device_token" validate:"required,max=256"`
	UserAgent   string `json:"-"`
}

// EnrollResponse identifies the enrolled student.
type EnrollResponse struct {
	StudentID string `json:"student_id"`
}

// ReregisterRequest moves a student onto a new device.
type ReregisterRequest struct {
	Name                string `json:"name" validate:"required,max=100"`
	Surname             string `json:"surname" validate:"required,max=100"`
	Group               string `json:"group" validate:"required,max=32"`
	ConfirmationCode    string `json:"confirmation_code" validate:"required,max=64"`
	ExistingDeviceToken string `json:"existing_device_token" validate:"max=256"`
	UserAgent           string `json:"-"`
}

// ReregisterResponse carries the freshly issued device secret.
type ReregisterResponse struct {
	NewDeviceToken string `json:"new_device_token"`
}

// StudentCreateRequest adds a student to the roster without binding a device.
type StudentCreateRequest struct {
	Name    string `json:"name" validate:"required,max=100,excludesall=0x7C"`
	Surname string `json:"surname" validate:"required,max=100,excludesall=0x7C"`
	Group   string `json:"group" validate:"required,max=32,excludesall=0x7C"`
	Barcode string `json:"barcode" validate:"omitempty,len=8,numeric"`
}

// StudentListRequest filters the roster listing.
type StudentListRequest struct {
	Group  string `query:"group" validate:"max=32"`
	Search string `query:"search" validate:"max=100"`
}

// StudentResponse is a roster entry as shown to administrators.
type StudentResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Surname    string    `json:"surname"`
	Group      string    `json:"group"`
	HasDevice  bool      `json:"has_device"`
	HasBarcode bool      `json:"has_barcode"`
	DeviceType *string   `json:"device_type"`
	CreatedAt  time.Time `json:"registered_at"`
}

// StudentSummary is the minimal student view returned by the barcode scanner.
type StudentSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Group   string `json:"group"`
}

// NewStudentResponse maps a roster entry, with its device preloaded, to the
// admin view.
func NewStudentResponse(student models.Student) StudentResponse {
	response := StudentResponse{
		ID:         student.ID,
		Name:       student.Name,
		Surname:    student.Surname,
		Group:      student.Group,
		HasBarcode: student.BarcodeHash != nil && *student.BarcodeHash != "",
		CreatedAt:  student.CreatedAt,
	}
	if student.Device != nil {
		deviceType := student.Device.DeviceType
		response.HasDevice = true
		response.DeviceType = &deviceType
	}
	return response
}

// NewStudentSummary maps a roster entry to the scanner view.
func NewStudentSummary(student models.Student) StudentSummary {
	return StudentSummary{
		ID:      student.ID,
		Name:    student.Name,
		Surname: student.Surname,
		Group:   student.Group,
	}
}
