package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidClassroom indicates a classroom id that is not configured.
	ErrInvalidClassroom = errors.New("classroom is not configured")
	// ErrTokenNotFound indicates no QR token matches the candidate.
	ErrTokenNotFound = errors.New("qr token not found")
	// ErrAlreadyRegistered indicates the student is bound to a different device.
	ErrAlreadyRegistered = errors.New("student already has a registered device")
	// ErrStudentExists indicates an enrolment for a student already on the roster.
	ErrStudentExists = errors.New("student already registered")
	// ErrStudentNotFound indicates the addressed student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrInvalidConfirmation indicates a wrong re-registration confirmation code.
	ErrInvalidConfirmation = errors.New("invalid confirmation code")
	// ErrInvalidStudentDetails indicates blank or malformed roster fields.
	ErrInvalidStudentDetails = errors.New("name, surname and group are required and may not contain |")
	// ErrDeviceCooldown indicates the device acted too recently.
	ErrDeviceCooldown = errors.New("device cooldown active")
	// ErrInvalidScan indicates a malformed scan request.
	ErrInvalidScan = errors.New("invalid scan request")
	// ErrForbidden indicates the caller lacks an administrative capability.
	ErrForbidden = errors.New("administrative capability required")

	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUnregisteredDevice    = errors.New("device is not registered")
	ErrUnknownStudent        = errors.New("unknown student")
	ErrAlreadyMarked         = errors.New("attendance already marked")
	ErrNetworkNotAllowed     = errors.New("network not allowed")
	ErrLocationRequired      = errors.New("location required")
	ErrOutsideClassroom      = errors.New("outside classroom")
)

// RejectionReason is the machine readable cause of a refused scan.
type RejectionReason string

const (
	ReasonInvalidOrExpiredToken RejectionReason = "invalid_or_expired_token"
	ReasonUnregisteredDevice    RejectionReason = "unregistered_device"
	ReasonUnknownStudent        RejectionReason = "unknown_student"
	ReasonAlreadyMarked         RejectionReason = "already_marked"
	ReasonNetworkNotAllowed     RejectionReason = "network_not_allowed"
	ReasonLocationRequired      RejectionReason = "location_required"
	ReasonOutsideClassroom      RejectionReason = "outside_classroom"
)

var reasonErrors = map[RejectionReason]error{
	ReasonInvalidOrExpiredToken: ErrInvalidOrExpiredToken,
	ReasonUnregisteredDevice:    ErrUnregisteredDevice,
	ReasonUnknownStudent:        ErrUnknownStudent,
	ReasonAlreadyMarked:         ErrAlreadyMarked,
	ReasonNetworkNotAllowed:     ErrNetworkNotAllowed,
	ReasonLocationRequired:      ErrLocationRequired,
	ReasonOutsideClassroom:      ErrOutsideClassroom,
}

// Rejection is returned when a scan is refused. It unwraps to the sentinel
// error of its reason.
type Rejection struct {
	Reason  RejectionReason
	Message string
	Details map[string]interface{}
}

func (r *Rejection) Error() string {
	return r.Message
}

func (r *Rejection) Unwrap() error {
	return reasonErrors[r.Reason]
}

func reject(reason RejectionReason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

// CooldownError reports how long a device must wait before its next
// registration change.
type CooldownError struct {
	Remaining time.Duration
	Action    string
}

func (e *CooldownError) Error() string {
	total := int(e.Remaining / time.Second)
	action := e.Action
	if action == "" {
		action = "making another change"
	}
	return fmt.Sprintf("this device must wait %d minutes and %d seconds before %s", total/60, total%60, action)
}

func (e *CooldownError) Unwrap() error {
	return ErrDeviceCooldown
}
