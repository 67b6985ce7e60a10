package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/identity"
	"github.com/noah-isme/prezenta-go-api/internal/models"
	"github.com/noah-isme/prezenta-go-api/internal/repository"
)

// DeviceRegistration binds a device secret to an existing student.
type DeviceRegistration struct {
	StudentID string
	Secret    string
	UserAgent string
}

// DeviceService manages the one-device-per-student binding.
type DeviceService interface {
	Register(ctx context.Context, reg DeviceRegistration) error
	Enroll(ctx context.Context, req dto.EnrollRequest) (dto.EnrollResponse, error)
	Reregister(ctx context.Context, req dto.ReregisterRequest) (dto.ReregisterResponse, error)
	LookupStudent(ctx context.Context, secret string) (string, error)
	CooldownRemaining(ctx context.Context, secretHash string, now time.Time) time.Duration
	Reset(ctx context.Context, admin AdminContext, studentID string) error
}

type deviceService struct {
	students  repository.StudentRepository
	devices   repository.DeviceRepository
	cooldowns repository.CooldownRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	window    time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewDeviceService constructs the device binding manager. window is the
// minimum time between an attendance scan and the next binding change made
// with the same secret.
func NewDeviceService(
	students repository.StudentRepository,
	devices repository.DeviceRepository,
	cooldowns repository.CooldownRepository,
	validate *validator.Validate,
	window time.Duration,
	logger zerolog.Logger,
) DeviceService {
	return &deviceService{
		students:  students,
		devices:   devices,
		cooldowns: cooldowns,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		window:    window,
		logger:    logger.With().Str("component", "device_service").Logger(),
		now:       time.Now,
	}
}

func (s *deviceService) Register(ctx context.Context, reg DeviceRegistration) error {
	secret := strings.TrimSpace(reg.Secret)
	if reg.StudentID == "" || secret == "" {
		return ErrInvalidStudentDetails
	}
	hash := identity.HashSecret(secret)

	if err := s.checkCooldown(ctx, hash, "registering another student"); err != nil {
		return err
	}

	current, err := s.devices.GetByStudent(ctx, reg.StudentID)
	switch {
	case err == nil:
		if current.TokenHash != hash {
			return ErrAlreadyRegistered
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return err
	}

	return s.bind(ctx, reg.StudentID, hash, reg.UserAgent)
}

// Enroll adds the caller to the roster and binds the device they enrolled from.
func (s *deviceService) Enroll(ctx context.Context, req dto.EnrollRequest) (dto.EnrollResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.EnrollResponse{}, err
	}

	fields, err := cleanStudentFields(s.sanitizer, req.Name, req.Surname, req.Group)
	if err != nil {
		return dto.EnrollResponse{}, err
	}

	secret := strings.TrimSpace(req.DeviceToken)
	if secret == "" {
		return dto.EnrollResponse{}, ErrInvalidStudentDetails
	}
	hash := identity.HashSecret(secret)
	if err := s.checkCooldown(ctx, hash, "registering another student"); err != nil {
		return dto.EnrollResponse{}, err
	}

	student := fields.student(strings.TrimSpace(req.Barcode), s.now().UTC())
	exists, err := s.students.Exists(ctx, student.ID)
	if err != nil {
		return dto.EnrollResponse{}, err
	}
	if exists {
		return dto.EnrollResponse{}, ErrStudentExists
	}
	if err := s.students.Create(ctx, &student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.EnrollResponse{}, ErrStudentExists
		}
		return dto.EnrollResponse{}, err
	}

	if err := s.Register(ctx, DeviceRegistration{StudentID: student.ID, Secret: secret, UserAgent: req.UserAgent}); err != nil {
		return dto.EnrollResponse{}, err
	}

	s.logger.Info().Str("student_id", student.ID).Str("group", student.Group).Msg("student enrolled")
	return dto.EnrollResponse{StudentID: student.ID}, nil
}

func (s *deviceService) Reregister(ctx context.Context, req dto.ReregisterRequest) (dto.ReregisterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ReregisterResponse{}, err
	}

	studentID := identity.StudentID(req.Name, req.Surname, req.Group)
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReregisterResponse{}, ErrStudentNotFound
		}
		return dto.ReregisterResponse{}, err
	}

	if !strings.EqualFold(strings.TrimSpace(req.ConfirmationCode), ConfirmationCode(student)) {
		return dto.ReregisterResponse{}, ErrInvalidConfirmation
	}

	if old := strings.TrimSpace(req.ExistingDeviceToken); old != "" {
		if err := s.checkCooldown(ctx, identity.HashSecret(old), "making another change"); err != nil {
			return dto.ReregisterResponse{}, err
		}
	}

	secret, err := identity.NewSecret(32)
	if err != nil {
		return dto.ReregisterResponse{}, err
	}
	if err := s.bind(ctx, student.ID, identity.HashSecret(secret), req.UserAgent); err != nil {
		return dto.ReregisterResponse{}, err
	}

	s.logger.Info().Str("student_id", student.ID).Msg("device re-registered")
	return dto.ReregisterResponse{NewDeviceToken: secret}, nil
}

func (s *deviceService) LookupStudent(ctx context.Context, secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", ErrUnregisteredDevice
	}

	studentID, err := s.devices.FindStudentID(ctx, identity.HashSecret(secret))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnregisteredDevice
		}
		return "", err
	}
	return studentID, nil
}

// CooldownRemaining fails open: a missing or unreadable entry means no wait.
func (s *deviceService) CooldownRemaining(ctx context.Context, secretHash string, now time.Time) time.Duration {
	last, err := s.cooldowns.LastAction(ctx, secretHash)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Err(err).Msg("ignoring unreadable device cooldown")
		}
		return 0
	}
	if last.IsZero() {
		return 0
	}

	remaining := s.window - now.Sub(last)
	if remaining <= 0 || remaining > s.window {
		return 0
	}
	return remaining
}

func (s *deviceService) Reset(ctx context.Context, admin AdminContext, studentID string) error {
	if err := admin.authorize(); err != nil {
		return err
	}
	if err := s.devices.Delete(ctx, studentID); err != nil {
		return err
	}

	s.logger.Info().Str("student_id", studentID).Str("admin", admin.Username).Msg("device binding reset")
	return nil
}

func (s *deviceService) checkCooldown(ctx context.Context, hash, action string) error {
	if remaining := s.CooldownRemaining(ctx, hash, s.now()); remaining > 0 {
		return &CooldownError{Remaining: remaining, Action: action}
	}
	return nil
}

func (s *deviceService) bind(ctx context.Context, studentID, hash, userAgent string) error {
	userAgent = truncate(userAgent, 512)
	device := models.Device{
		StudentID:    studentID,
		TokenHash:    hash,
		RegisteredAt: s.now().UTC(),
		UserAgent:    userAgent,
		DeviceType:   identity.ClassifyDevice(userAgent),
	}
	if err := s.devices.Bind(ctx, device); err != nil {
		return fmt.Errorf("bind device: %w", err)
	}
	return nil
}

// ConfirmationCode is the group followed by the upper-cased first letter of
// the student's name.
func ConfirmationCode(student models.Student) string {
	initial := ""
	if runes := []rune(strings.TrimSpace(student.Name)); len(runes) > 0 {
		initial = strings.ToUpper(string(runes[0]))
	}
	return student.Group + initial
}

// truncate cuts value to at most max bytes without splitting a rune.
func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
