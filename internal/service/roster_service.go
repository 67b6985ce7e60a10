package service

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/identity"
	"github.com/noah-isme/prezenta-go-api/internal/models"
	"github.com/noah-isme/prezenta-go-api/internal/repository"
)

// RosterService manages the student list on behalf of administrators.
type RosterService interface {
	Add(ctx context.Context, admin AdminContext, req dto.StudentCreateRequest) (dto.StudentResponse, error)
	List(ctx context.Context, admin AdminContext, req dto.StudentListRequest) ([]dto.StudentResponse, error)
	Delete(ctx context.Context, admin AdminContext, studentID string) error
	FindByBarcode(ctx context.Context, admin AdminContext, barcode string) (dto.StudentSummary, error)
}

type rosterService struct {
	students  repository.StudentRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRosterService constructs the roster service.
func NewRosterService(students repository.StudentRepository, validate *validator.Validate, logger zerolog.Logger) RosterService {
	return &rosterService{
		students:  students,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "roster_service").Logger(),
		now:       time.Now,
	}
}

func (s *rosterService) Add(ctx context.Context, admin AdminContext, req dto.StudentCreateRequest) (dto.StudentResponse, error) {
	if err := admin.authorize(); err != nil {
		return dto.StudentResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	fields, err := cleanStudentFields(s.sanitizer, req.Name, req.Surname, req.Group)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	student := fields.student(strings.TrimSpace(req.Barcode), s.now().UTC())
	if err := s.students.Create(ctx, &student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.StudentResponse{}, ErrStudentExists
		}
		return dto.StudentResponse{}, err
	}

	s.logger.Info().Str("student_id", student.ID).Str("admin", admin.Username).Msg("student added")
	return dto.NewStudentResponse(student), nil
}

func (s *rosterService) List(ctx context.Context, admin AdminContext, req dto.StudentListRequest) ([]dto.StudentResponse, error) {
	if err := admin.authorize(); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	students, err := s.students.List(ctx, repository.StudentFilter{
		Group:  strings.TrimSpace(req.Group),
		Search: strings.TrimSpace(req.Search),
	})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, dto.NewStudentResponse(student))
	}
	return responses, nil
}

func (s *rosterService) Delete(ctx context.Context, admin AdminContext, studentID string) error {
	if err := admin.authorize(); err != nil {
		return err
	}

	if err := s.students.Delete(ctx, strings.TrimSpace(studentID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}

	s.logger.Info().Str("student_id", studentID).Str("admin", admin.Username).Msg("student deleted")
	return nil
}

func (s *rosterService) FindByBarcode(ctx context.Context, admin AdminContext, barcode string) (dto.StudentSummary, error) {
	if err := admin.authorize(); err != nil {
		return dto.StudentSummary{}, err
	}

	student, err := findByBarcode(ctx, s.students, barcode)
	if err != nil {
		return dto.StudentSummary{}, err
	}
	return dto.NewStudentSummary(student), nil
}

func findByBarcode(ctx context.Context, students repository.StudentRepository, barcode string) (models.Student, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return models.Student{}, ErrStudentNotFound
	}

	student, err := students.GetByBarcodeHash(ctx, identity.HashBarcode(barcode))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

type studentFields struct {
	name    string
	surname string
	group   string
}

// cleanStudentFields strips markup and surrounding whitespace. Fields that end
// up blank, or that contain the legacy "|" delimiter, are rejected.
func cleanStudentFields(policy *bluemonday.Policy, name, surname, group string) (studentFields, error) {
	clean := func(value string) string {
		return strings.TrimSpace(html.UnescapeString(policy.Sanitize(value)))
	}

	fields := studentFields{name: clean(name), surname: clean(surname), group: clean(group)}
	for _, value := range []string{fields.name, fields.surname, fields.group} {
		if value == "" || strings.Contains(value, "|") {
			return studentFields{}, ErrInvalidStudentDetails
		}
	}
	return fields, nil
}

func (f studentFields) student(barcode string, now time.Time) models.Student {
	student := models.Student{
		ID:        identity.StudentID(f.name, f.surname, f.group),
		Name:      f.name,
		Surname:   f.surname,
		Group:     f.group,
		CreatedAt: now,
	}
	if barcode != "" {
		hash := identity.HashBarcode(barcode)
		student.BarcodeHash = &hash
	}
	return student
}
