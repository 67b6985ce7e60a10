package handler_test

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/middleware"
	"github.com/noah-isme/prezenta-go-api/internal/models"
	"github.com/noah-isme/prezenta-go-api/internal/service"
)

type stubAttendanceService struct {
	result   dto.ScanResult
	err      error
	lastScan dto.ScanRequest
	toggle   dto.ToggleAttendanceResponse
	list     dto.AttendanceListResponse
	lastList dto.AttendanceListRequest
	admin    service.AdminContext
}

func (s *stubAttendanceService) Verify(_ context.Context, req dto.ScanRequest) (dto.ScanResult, error) {
	s.lastScan = req
	return s.result, s.err
}

func (s *stubAttendanceService) Toggle(_ context.Context, admin service.AdminContext, _ dto.ToggleAttendanceRequest) (dto.ToggleAttendanceResponse, error) {
	s.admin = admin
	return s.toggle, s.err
}

func (s *stubAttendanceService) MarkByBarcode(_ context.Context, admin service.AdminContext, _ dto.BarcodeMarkRequest) (dto.StudentSummary, error) {
	s.admin = admin
	return dto.StudentSummary{}, s.err
}

func (s *stubAttendanceService) List(_ context.Context, admin service.AdminContext, req dto.AttendanceListRequest) (dto.AttendanceListResponse, error) {
	s.admin = admin
	s.lastList = req
	return s.list, s.err
}

func (s *stubAttendanceService) Dashboard(_ context.Context, admin service.AdminContext) (dto.DashboardResponse, error) {
	s.admin = admin
	return dto.DashboardResponse{}, s.err
}

type stubDeviceService struct {
	enrolled   dto.EnrollRequest
	reset      string
	enrollResp dto.EnrollResponse
	err        error
}

func (s *stubDeviceService) Register(context.Context, service.DeviceRegistration) error { return s.err }

func (s *stubDeviceService) Enroll(_ context.Context, req dto.EnrollRequest) (dto.EnrollResponse, error) {
	s.enrolled = req
	return s.enrollResp, s.err
}

func (s *stubDeviceService) Reregister(context.Context, dto.ReregisterRequest) (dto.ReregisterResponse, error) {
	return dto.ReregisterResponse{NewDeviceToken: "fresh"}, s.err
}

func (s *stubDeviceService) LookupStudent(context.Context, string) (string, error) { return "", s.err }

func (s *stubDeviceService) CooldownRemaining(context.Context, string, time.Time) time.Duration {
	return 0
}

func (s *stubDeviceService) Reset(_ context.Context, _ service.AdminContext, studentID string) error {
	s.reset = studentID
	return s.err
}

type stubQRService struct {
	resp  dto.QRTokenResponse
	admin service.AdminContext
	req   dto.QRIssueRequest
	err   error
}

func (s *stubQRService) Issue(context.Context, string, string) (service.IssuedToken, error) {
	return service.IssuedToken{}, s.err
}

func (s *stubQRService) IssueForSession(_ context.Context, admin service.AdminContext, req dto.QRIssueRequest) (dto.QRTokenResponse, error) {
	s.admin = admin
	s.req = req
	return s.resp, s.err
}

func (s *stubQRService) RegistrationQR(_ context.Context, admin service.AdminContext) (dto.RegistrationQRResponse, error) {
	s.admin = admin
	return dto.RegistrationQRResponse{URL: "https://prezenta.example.edu/register"}, s.err
}

func (s *stubQRService) Resolve(context.Context, string) (models.QRToken, error) {
	return models.QRToken{}, s.err
}

func (s *stubQRService) IsFresh(models.QRToken, time.Time) bool { return true }

func (s *stubQRService) Sweep(context.Context, time.Time) service.SweepResult {
	return service.SweepResult{}
}

// asTeacher simulates a request that already passed JWT verification.
func asTeacher(username string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUsername, username)
		c.Locals(middleware.LocalRole, "teacher")
		return c.Next()
	}
}
