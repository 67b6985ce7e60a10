package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/config"
	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/events"
	"github.com/noah-isme/prezenta-go-api/internal/identity"
	"github.com/noah-isme/prezenta-go-api/internal/models"
	"github.com/noah-isme/prezenta-go-api/internal/observability"
	"github.com/noah-isme/prezenta-go-api/internal/repository"
)

const dashboardRecentLimit = 10

// AttendancePublisher forwards committed attendance to other systems.
type AttendancePublisher interface {
	PublishAttendance(ctx context.Context, event events.AttendanceRecorded) error
}

// AttendanceService verifies scans and serves attendance reports.
type AttendanceService interface {
	Verify(ctx context.Context, req dto.ScanRequest) (dto.ScanResult, error)
	Toggle(ctx context.Context, admin AdminContext, req dto.ToggleAttendanceRequest) (dto.ToggleAttendanceResponse, error)
	MarkByBarcode(ctx context.Context, admin AdminContext, req dto.BarcodeMarkRequest) (dto.StudentSummary, error)
	List(ctx context.Context, admin AdminContext, req dto.AttendanceListRequest) (dto.AttendanceListResponse, error)
	Dashboard(ctx context.Context, admin AdminContext) (dto.DashboardResponse, error)
}

type attendanceService struct {
	tokens     QRTokenService
	devices    DeviceService
	students   repository.StudentRepository
	bindings   repository.DeviceRepository
	attendance repository.AttendanceRepository
	settings   config.Attendance
	publisher  AttendancePublisher
	validator  *validator.Validate
	logger     zerolog.Logger
	tracer     trace.Tracer
	location   *time.Location
	now        func() time.Time
}

// NewAttendanceService constructs the attendance verifier. publisher may be nil.
func NewAttendanceService(
	tokens QRTokenService,
	devices DeviceService,
	students repository.StudentRepository,
	bindings repository.DeviceRepository,
	attendance repository.AttendanceRepository,
	settings config.Attendance,
	publisher AttendancePublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) AttendanceService {
	return &attendanceService{
		tokens:     tokens,
		devices:    devices,
		students:   students,
		bindings:   bindings,
		attendance: attendance,
		settings:   settings,
		publisher:  publisher,
		validator:  validate,
		logger:     logger.With().Str("component", "attendance_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/prezenta-go-api/internal/service/attendance"),
		location:   time.Local,
		now:        time.Now,
	}
}

func (s *attendanceService) Verify(ctx context.Context, req dto.ScanRequest) (dto.ScanResult, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.verify")
	defer span.End()

	result, err := s.verify(ctx, span, req)
	if err != nil {
		var rejection *Rejection
		switch {
		case errors.As(err, &rejection):
			observability.RecordScan(string(rejection.Reason))
			span.SetAttributes(attribute.String("attendance.reason", string(rejection.Reason)))
			span.SetStatus(codes.Error, "rejected")
		case errors.Is(err, ErrInvalidScan):
			observability.RecordScan("invalid_request")
			span.SetStatus(codes.Error, "validation failed")
		default:
			observability.RecordScan("error")
			span.RecordError(err)
			span.SetStatus(codes.Error, "verification failed")
		}
		return dto.ScanResult{}, err
	}

	observability.RecordScan("recorded")
	span.SetStatus(codes.Ok, "recorded")
	return result, nil
}

func (s *attendanceService) verify(ctx context.Context, span trace.Span, req dto.ScanRequest) (dto.ScanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ScanResult{}, fmt.Errorf("%w: %w", ErrInvalidScan, err)
	}

	token, err := s.tokens.Resolve(ctx, req.QRToken)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return dto.ScanResult{}, reject(ReasonInvalidOrExpiredToken, "Invalid or expired QR code. Scan a new code from the instructor.")
		}
		return dto.ScanResult{}, err
	}
	now := s.now()
	if !s.tokens.IsFresh(token, now) {
		return dto.ScanResult{}, reject(ReasonInvalidOrExpiredToken, "QR code expired. Scan a new code from the instructor.")
	}
	span.SetAttributes(attribute.String("attendance.lesson_id", token.LessonID), attribute.String("attendance.classroom", token.Classroom))

	studentID, err := s.devices.LookupStudent(ctx, req.DeviceToken)
	if err != nil {
		if errors.Is(err, ErrUnregisteredDevice) {
			return dto.ScanResult{}, reject(ReasonUnregisteredDevice, "This device is not registered. Register first.")
		}
		return dto.ScanResult{}, err
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScanResult{}, reject(ReasonUnknownStudent, "Student does not exist, check that you are registered.")
		}
		return dto.ScanResult{}, err
	}

	marked, err := s.attendance.Exists(ctx, student.ID, token.LessonID)
	if err != nil {
		return dto.ScanResult{}, err
	}
	if marked {
		return dto.ScanResult{}, reject(ReasonAlreadyMarked, "Attendance already marked for this lesson.")
	}

	clientIP := ClientIP(req.ForwardedFor, req.PeerIP)
	if !IPAllowed(clientIP, s.settings.AllowedIPPrefixes) {
		rejection := reject(ReasonNetworkNotAllowed,
			fmt.Sprintf("Your IP (%s) is not allowed to mark attendance. Connect to the university network.", clientIP))
		rejection.Details = map[string]interface{}{"client_ip": clientIP}
		return dto.ScanResult{}, rejection
	}

	if req.Latitude == nil || req.Longitude == nil {
		return dto.ScanResult{}, reject(ReasonLocationRequired, "Location is required. Enable GPS and try again.")
	}
	room, ok := s.settings.Classroom(token.Classroom)
	if !ok {
		return dto.ScanResult{}, reject(ReasonOutsideClassroom, "You must be in the classroom to mark attendance.")
	}
	distance := HaversineMeters(*req.Latitude, *req.Longitude, room.Latitude, room.Longitude)
	if distance > room.RadiusMeters {
		rejection := reject(ReasonOutsideClassroom, "You must be in the classroom to mark attendance. Check your GPS.")
		rejection.Details = map[string]interface{}{"distance_meters": roundTo(distance, 1)}
		return dto.ScanResult{}, rejection
	}

	record := models.Attendance{
		StudentID: student.ID,
		LessonID:  token.LessonID,
		Timestamp: now.UTC(),
		Context: datatypes.JSONMap{
			"source":          models.AttendanceSourceQR,
			"classroom":       token.Classroom,
			"client_ip":       clientIP,
			"distance_meters": roundTo(distance, 1),
		},
	}
	if err := s.attendance.CreateWithCooldown(ctx, &record, identity.HashSecret(strings.TrimSpace(req.DeviceToken))); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.ScanResult{}, reject(ReasonAlreadyMarked, "Attendance already marked for this lesson.")
		}
		return dto.ScanResult{}, err
	}

	s.publish(ctx, record, token.Classroom, models.AttendanceSourceQR)
	s.logger.Info().
		Str("student_id", student.ID).
		Str("lesson_id", token.LessonID).
		Str("classroom", token.Classroom).
		Str("client_ip", clientIP).
		Float64("distance_m", roundTo(distance, 1)).
		Msg("attendance recorded")

	return dto.ScanResult{
		StudentName:    student.DisplayName(),
		LessonID:       token.LessonID,
		Classroom:      token.Classroom,
		DistanceMeters: roundTo(distance, 1),
		RecordedAt:     record.Timestamp,
	}, nil
}

// Toggle marks the student present when absent and absent when present.
func (s *attendanceService) Toggle(ctx context.Context, admin AdminContext, req dto.ToggleAttendanceRequest) (dto.ToggleAttendanceResponse, error) {
	if err := admin.authorize(); err != nil {
		return dto.ToggleAttendanceResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ToggleAttendanceResponse{}, err
	}

	student, err := s.findToggleTarget(ctx, req)
	if err != nil {
		return dto.ToggleAttendanceResponse{}, err
	}
	lessonID := strings.TrimSpace(req.LessonID)
	response := dto.ToggleAttendanceResponse{StudentID: student.ID, LessonID: lessonID}

	removed, err := s.attendance.Delete(ctx, student.ID, lessonID)
	if err != nil {
		return dto.ToggleAttendanceResponse{}, err
	}
	if removed {
		s.logger.Info().Str("student_id", student.ID).Str("lesson_id", lessonID).Str("admin", admin.Username).Msg("attendance removed")
		return response, nil
	}

	if err := s.record(ctx, student.ID, lessonID, models.AttendanceSourceManual, admin); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return dto.ToggleAttendanceResponse{}, err
	}
	response.IsPresent = true
	return response, nil
}

func (s *attendanceService) findToggleTarget(ctx context.Context, req dto.ToggleAttendanceRequest) (models.Student, error) {
	var (
		student models.Student
		err     error
	)
	if id := strings.TrimSpace(req.StudentID); id != "" {
		student, err = s.students.GetByID(ctx, id)
	} else {
		student, err = s.students.FindByDisplayName(ctx, strings.TrimSpace(req.StudentName), strings.TrimSpace(req.Group))
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

func (s *attendanceService) MarkByBarcode(ctx context.Context, admin AdminContext, req dto.BarcodeMarkRequest) (dto.StudentSummary, error) {
	if err := admin.authorize(); err != nil {
		return dto.StudentSummary{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentSummary{}, err
	}

	student, err := findByBarcode(ctx, s.students, req.Barcode)
	if err != nil {
		return dto.StudentSummary{}, err
	}

	if err := s.record(ctx, student.ID, strings.TrimSpace(req.LessonID), models.AttendanceSourceBarcode, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.StudentSummary{}, ErrAlreadyMarked
		}
		return dto.StudentSummary{}, err
	}
	return dto.NewStudentSummary(student), nil
}

func (s *attendanceService) record(ctx context.Context, studentID, lessonID, source string, admin AdminContext) error {
	record := models.Attendance{
		StudentID: studentID,
		LessonID:  lessonID,
		Timestamp: s.now().UTC(),
		Context: datatypes.JSONMap{
			"source":      source,
			"recorded_by": admin.Username,
		},
	}
	if err := s.attendance.Create(ctx, &record); err != nil {
		return err
	}

	s.publish(ctx, record, "", source)
	s.logger.Info().Str("student_id", studentID).Str("lesson_id", lessonID).Str("source", source).Str("admin", admin.Username).Msg("attendance recorded")
	return nil
}

func (s *attendanceService) publish(ctx context.Context, record models.Attendance, classroom, source string) {
	if s.publisher == nil {
		return
	}
	event := events.AttendanceRecorded{
		StudentID:  record.StudentID,
		LessonID:   record.LessonID,
		Classroom:  classroom,
		Source:     source,
		RecordedAt: record.Timestamp,
	}
	if err := s.publisher.PublishAttendance(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("lesson_id", record.LessonID).Msg("failed to publish attendance event")
	}
}

// List returns attendance records. With both a lesson and a group selected it
// returns the whole group with each student's presence instead.
func (s *attendanceService) List(ctx context.Context, admin AdminContext, req dto.AttendanceListRequest) (dto.AttendanceListResponse, error) {
	if err := admin.authorize(); err != nil {
		return dto.AttendanceListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.AttendanceListResponse{}, err
	}

	lessonID := strings.TrimSpace(req.LessonID)
	group := strings.TrimSpace(req.Group)

	lessons, err := s.attendance.Lessons(ctx)
	if err != nil {
		return dto.AttendanceListResponse{}, err
	}
	groups, err := s.students.Groups(ctx)
	if err != nil {
		return dto.AttendanceListResponse{}, err
	}

	response := dto.AttendanceListResponse{Lessons: lessons, Groups: groups}

	if lessonID != "" && group != "" {
		items, err := s.rosterView(ctx, lessonID, group, req.Date)
		if err != nil {
			return dto.AttendanceListResponse{}, err
		}
		response.Items = items
		response.ShowStatus = true
		response.Stats = summarize(items)
		return response, nil
	}

	filter := repository.AttendanceFilter{LessonID: lessonID, Group: group}
	if req.Date != "" {
		from, to, err := s.dayBounds(req.Date)
		if err != nil {
			return dto.AttendanceListResponse{}, err
		}
		filter.From, filter.To = &from, &to
	}

	rows, err := s.attendance.List(ctx, filter)
	if err != nil {
		return dto.AttendanceListResponse{}, err
	}

	items := make([]dto.AttendanceEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, entryFromRow(row))
	}
	sortEntries(items)
	response.Items = items
	return response, nil
}

func (s *attendanceService) rosterView(ctx context.Context, lessonID, group, date string) ([]dto.AttendanceEntry, error) {
	students, err := s.students.List(ctx, repository.StudentFilter{Group: group})
	if err != nil {
		return nil, err
	}
	present, err := s.attendance.ForLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.AttendanceEntry, 0, len(students))
	for _, student := range students {
		entry := dto.AttendanceEntry{
			StudentID: student.ID,
			Name:      student.DisplayName(),
			Group:     student.Group,
			LessonID:  lessonID,
		}
		if record, ok := present[student.ID]; ok && (date == "" || record.Timestamp.In(s.location).Format("2006-01-02") == date) {
			timestamp := record.Timestamp
			entry.Timestamp = &timestamp
			entry.IsPresent = true
		}
		items = append(items, entry)
	}
	sortEntries(items)
	return items, nil
}

func (s *attendanceService) Dashboard(ctx context.Context, admin AdminContext) (dto.DashboardResponse, error) {
	if err := admin.authorize(); err != nil {
		return dto.DashboardResponse{}, err
	}

	students, err := s.students.Count(ctx)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	devices, err := s.bindings.Count(ctx)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	records, err := s.attendance.Count(ctx)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	rows, err := s.attendance.List(ctx, repository.AttendanceFilter{Limit: dashboardRecentLimit, Newest: true})
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	recent := make([]dto.AttendanceEntry, 0, len(rows))
	for _, row := range rows {
		recent = append(recent, entryFromRow(row))
	}

	return dto.DashboardResponse{
		TotalStudents:     students,
		RegisteredDevices: devices,
		TotalRecords:      records,
		Recent:            recent,
	}, nil
}

func (s *attendanceService) dayBounds(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}

func entryFromRow(row repository.AttendanceRow) dto.AttendanceEntry {
	timestamp := row.Timestamp
	name := strings.TrimSpace(row.Surname + " " + row.Name)
	if name == "" {
		name = "Unknown"
	}
	return dto.AttendanceEntry{
		StudentID: row.StudentID,
		Name:      name,
		Group:     row.Group,
		LessonID:  row.LessonID,
		Timestamp: &timestamp,
		IsPresent: true,
	}
}

func sortEntries(items []dto.AttendanceEntry) {
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
}

func summarize(items []dto.AttendanceEntry) *dto.AttendanceStats {
	stats := &dto.AttendanceStats{Total: len(items)}
	for _, item := range items {
		if item.IsPresent {
			stats.Present++
		}
	}
	stats.Absent = stats.Total - stats.Present
	if stats.Total > 0 {
		stats.Percentage = roundTo(float64(stats.Present)/float64(stats.Total)*100, 1)
	}
	return stats
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
