package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/cache"
	"github.com/noah-isme/prezenta-go-api/internal/config"
	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/events"
	"github.com/noah-isme/prezenta-go-api/internal/models"
	"github.com/noah-isme/prezenta-go-api/internal/repository"
)

const (
	roomLat = 47.0617782
	roomLng = 28.8679226
	// metres per degree of latitude on a 6371 km sphere
	metersPerDegree = 111194.93
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.AttendanceRecorded
}

func (p *recordingPublisher) PublishAttendance(_ context.Context, event events.AttendanceRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) recorded() []events.AttendanceRecorded {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.AttendanceRecorded(nil), p.events...)
}

type attendanceFixture struct {
	db         *gorm.DB
	clock      *testClock
	settings   config.Attendance
	qr         *qrTokenService
	devices    *deviceService
	roster     *rosterService
	attendance *attendanceService
	publisher  *recordingPublisher
	admin      AdminContext
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func testSettings() config.Attendance {
	return config.Attendance{
		TokenValidity:     10 * time.Second,
		ScanBuffer:        7 * time.Second,
		SessionDuration:   40 * time.Second,
		TokenGrace:        10 * time.Second,
		DeviceCooldown:    2 * time.Minute,
		SweepInterval:     time.Second,
		AllowedIPPrefixes: []string{"81.180."},
		Classrooms:        config.DefaultClassrooms(),
	}
}

func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()
	return newAttendanceFixtureWith(t, testSettings())
}

func newAttendanceFixtureWith(t *testing.T, settings config.Attendance) *attendanceFixture {
	t.Helper()

	db := openTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.Nop()

	students := repository.NewStudentRepository(db)
	bindings := repository.NewDeviceRepository(db)
	cooldowns := repository.NewCooldownRepository(db)
	tokens := repository.NewQRTokenRepository(db)
	attendance := repository.NewAttendanceRepository(db)

	qr := NewQRTokenService(tokens, cooldowns,
		cache.NewMemoryTokenCache(settings.TokenLifetime()),
		cache.NewDisplayCodes(settings.TokenLifetime()),
		settings, "https://prezenta.example.edu/", validate, logger).(*qrTokenService)
	qr.now = clock.Now

	devices := NewDeviceService(students, bindings, cooldowns, validate, settings.DeviceCooldown, logger).(*deviceService)
	devices.now = clock.Now

	roster := NewRosterService(students, validate, logger).(*rosterService)
	roster.now = clock.Now

	publisher := &recordingPublisher{}
	verifier := NewAttendanceService(qr, devices, students, bindings, attendance, settings, publisher, validate, logger).(*attendanceService)
	verifier.now = clock.Now
	verifier.location = time.UTC

	return &attendanceFixture{
		db:         db,
		clock:      clock,
		settings:   settings,
		qr:         qr,
		devices:    devices,
		roster:     roster,
		attendance: verifier,
		publisher:  publisher,
		admin:      AdminContext{Username: "admin", Role: models.TeacherRoleAdmin},
	}
}

func (f *attendanceFixture) enroll(t *testing.T, name, surname, group, secret string) string {
	t.Helper()
	resp, err := f.devices.Enroll(context.Background(), dto.EnrollRequest{
		Name:        name,
		Surname:     surname,
		Group:       group,
		DeviceToken: secret,
		UserAgent:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148",
	})
	require.NoError(t, err)
	return resp.StudentID
}

func (f *attendanceFixture) issue(t *testing.T, lessonID string) IssuedToken {
	t.Helper()
	issued, err := f.qr.Issue(context.Background(), lessonID, "6-2")
	require.NoError(t, err)
	return issued
}

func scanAt(token, secret string, lat, lng float64) dto.ScanRequest {
	return dto.ScanRequest{
		QRToken:      token,
		DeviceToken:  secret,
		Latitude:     &lat,
		Longitude:    &lng,
		PeerIP:       "10.0.0.1",
		ForwardedFor: "81.180.12.7, 10.0.0.1",
	}
}

func requireReason(t *testing.T, err error, reason RejectionReason) *Rejection {
	t.Helper()
	require.Error(t, err)
	rejection, ok := err.(*Rejection)
	require.True(t, ok, "expected rejection, got %v", err)
	require.Equal(t, reason, rejection.Reason)
	return rejection
}
