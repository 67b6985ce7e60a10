package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func seedStudent(t *testing.T, db *gorm.DB, id, name, surname, group string) models.Student {
	t.Helper()
	student := models.Student{ID: id, Name: name, Surname: surname, Group: group, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func TestDeviceBindEvictsOtherOwnerOfSameHash(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviceRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "a", "Ana", "Rusu", "TI-1")
	seedStudent(t, db, "b", "Ion", "Lupu", "TI-1")

	now := time.Now()
	require.NoError(t, repo.Bind(ctx, models.Device{StudentID: "a", TokenHash: "hash-s", RegisteredAt: now, DeviceType: "mobile"}))
	require.NoError(t, repo.Bind(ctx, models.Device{StudentID: "b", TokenHash: "hash-s", RegisteredAt: now, DeviceType: "mobile"}))

	owner, err := repo.FindStudentID(ctx, "hash-s")
	require.NoError(t, err)
	require.Equal(t, "b", owner)

	_, err = repo.GetByStudent(ctx, "a")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
}

func TestDeviceBindReplacesStudentsPreviousHash(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviceRepository(db)
	ctx := context.Background()
	seedStudent(t, db, "a", "Ana", "Rusu", "TI-1")

	require.NoError(t, repo.Bind(ctx, models.Device{StudentID: "a", TokenHash: "old", RegisteredAt: time.Now(), DeviceType: "unknown"}))
	require.NoError(t, repo.Bind(ctx, models.Device{StudentID: "a", TokenHash: "new", RegisteredAt: time.Now(), DeviceType: "computer"}))

	device, err := repo.GetByStudent(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "new", device.TokenHash)
	require.Equal(t, "computer", device.DeviceType)

	_, err = repo.FindStudentID(ctx, "old")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAttendanceCreateWithCooldownRejectsDuplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttendanceRepository(db)
	cooldowns := NewCooldownRepository(db)
	ctx := context.Background()
	seedStudent(t, db, "a", "Ana", "Rusu", "TI-1")

	at := time.Now().Truncate(time.Second)
	first := models.Attendance{StudentID: "a", LessonID: "CS101-L1", Timestamp: at}
	require.NoError(t, repo.CreateWithCooldown(ctx, &first, "device-hash"))

	last, err := cooldowns.LastAction(ctx, "device-hash")
	require.NoError(t, err)
	require.True(t, last.Equal(at))

	second := models.Attendance{StudentID: "a", LessonID: "CS101-L1", Timestamp: at.Add(time.Minute)}
	err = repo.CreateWithCooldown(ctx, &second, "device-hash")
	require.ErrorIs(t, err, ErrDuplicate)

	// The failed transaction must not move the cooldown.
	last, err = cooldowns.LastAction(ctx, "device-hash")
	require.NoError(t, err)
	require.True(t, last.Equal(at))

	exists, err := repo.Exists(ctx, "a", "CS101-L1")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestStudentDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	students := NewStudentRepository(db)
	devices := NewDeviceRepository(db)
	attendance := NewAttendanceRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "a", "Ana", "Rusu", "TI-1")
	require.NoError(t, devices.Bind(ctx, models.Device{StudentID: "a", TokenHash: "h", RegisteredAt: time.Now(), DeviceType: "mobile"}))
	require.NoError(t, attendance.Create(ctx, &models.Attendance{StudentID: "a", LessonID: "L1", Timestamp: time.Now()}))

	require.NoError(t, students.Delete(ctx, "a"))

	deviceCount, err := devices.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, deviceCount)

	attendanceCount, err := attendance.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, attendanceCount)

	require.ErrorIs(t, students.Delete(ctx, "a"), gorm.ErrRecordNotFound)
}

func TestQRTokenDeleteOlderThanIsStrict(t *testing.T) {
	db := newTestDB(t)
	repo := NewQRTokenRepository(db)
	ctx := context.Background()

	cutoff := time.Now().Truncate(time.Second)
	require.NoError(t, repo.Create(ctx, &models.QRToken{Token: "old", LessonID: "L", Classroom: "6-2", CreatedAt: cutoff.Add(-time.Second)}))
	require.NoError(t, repo.Create(ctx, &models.QRToken{Token: "edge", LessonID: "L", Classroom: "6-2", CreatedAt: cutoff}))

	deleted, err := repo.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = repo.Get(ctx, "edge")
	require.NoError(t, err)
	_, err = repo.Get(ctx, "old")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAttendanceListJoinsRosterAndOrdersLessons(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttendanceRepository(db)
	ctx := context.Background()

	seedStudent(t, db, "a", "Ana", "Rusu", "TI-1")
	seedStudent(t, db, "b", "Ion", "Lupu", "TI-2")

	base := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, &models.Attendance{StudentID: "a", LessonID: "L1", Timestamp: base}))
	require.NoError(t, repo.Create(ctx, &models.Attendance{StudentID: "b", LessonID: "L2", Timestamp: base.Add(time.Minute)}))

	rows, err := repo.List(ctx, AttendanceFilter{Group: "TI-2"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Lupu", rows[0].Surname)
	require.Equal(t, "L2", rows[0].LessonID)

	lessons, err := repo.Lessons(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"L2", "L1"}, lessons)
}

func TestTeacherDefaultPasswordTracking(t *testing.T) {
	db := newTestDB(t)
	repo := NewTeacherRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, models.Teacher{Username: "admin", PasswordHash: "x", DisplayName: "Administrator", Role: models.TeacherRoleAdmin}))

	usingDefault, err := repo.AnyUsingDefaultPassword(ctx)
	require.NoError(t, err)
	require.True(t, usingDefault)

	require.NoError(t, repo.UpdatePassword(ctx, "admin", "y", true))
	usingDefault, err = repo.AnyUsingDefaultPassword(ctx)
	require.NoError(t, err)
	require.False(t, usingDefault)

	require.ErrorIs(t, repo.UpdatePassword(ctx, "ghost", "y", true), gorm.ErrRecordNotFound)
}
