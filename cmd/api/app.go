package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/prezenta-go-api/internal/cache"
	"github.com/noah-isme/prezenta-go-api/internal/config"
	"github.com/noah-isme/prezenta-go-api/internal/events"
	"github.com/noah-isme/prezenta-go-api/internal/handler"
	"github.com/noah-isme/prezenta-go-api/internal/middleware"
	"github.com/noah-isme/prezenta-go-api/internal/repository"
	"github.com/noah-isme/prezenta-go-api/internal/router"
	"github.com/noah-isme/prezenta-go-api/internal/service"
)

// infrastructure holds the connections the application is assembled from.
// Redis and NATS are optional.
type infrastructure struct {
	DB    *gorm.DB
	Redis *redis.Client
	NATS  *nats.Conn
}

func buildApp(ctx context.Context, cfg config.Config, infra infrastructure, logger zerolog.Logger) (*fiber.App, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(infra.DB)
	deviceRepo := repository.NewDeviceRepository(infra.DB)
	cooldownRepo := repository.NewCooldownRepository(infra.DB)
	qrTokenRepo := repository.NewQRTokenRepository(infra.DB)
	attendanceRepo := repository.NewAttendanceRepository(infra.DB)
	teacherRepo := repository.NewTeacherRepository(infra.DB)

	lifetime := cfg.Attendance.TokenLifetime()
	var tokenCache cache.TokenCache = cache.NewMemoryTokenCache(lifetime)
	if infra.Redis != nil {
		tokenCache = cache.NewRedisTokenCache(infra.Redis, lifetime, logger)
	}

	var publisher service.AttendancePublisher
	if infra.NATS != nil {
		publisher = events.NewNATSPublisher(infra.NATS, events.SubjectAttendanceRecorded, logger)
	}

	qrService := service.NewQRTokenService(qrTokenRepo, cooldownRepo, tokenCache, cache.NewDisplayCodes(lifetime), cfg.Attendance, cfg.BaseURL, validate, logger)
	deviceService := service.NewDeviceService(studentRepo, deviceRepo, cooldownRepo, validate, cfg.Attendance.DeviceCooldown, logger)
	rosterService := service.NewRosterService(studentRepo, validate, logger)
	attendanceService := service.NewAttendanceService(qrService, deviceService, studentRepo, deviceRepo, attendanceRepo, cfg.Attendance, publisher, validate, logger)
	authService := service.NewAuthService(teacherRepo, validate, cfg.JWTSecret, cfg.JWTTTL, logger)

	created, err := authService.EnsureDefaultAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed default admin: %w", err)
	}
	if created {
		logger.Warn().Str("username", service.DefaultAdminUsername).Msg("default admin account created, change its password")
	}

	sqlDB, err := infra.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AttendanceHandler:      handler.NewAttendanceHandler(attendanceService, logger),
		StudentHandler:         handler.NewStudentHandler(deviceService, logger),
		AuthHandler:            handler.NewAuthHandler(authService, logger),
		AdminQRHandler:         handler.NewAdminQRHandler(qrService, logger),
		AdminAttendanceHandler: handler.NewAdminAttendanceHandler(attendanceService, rosterService, logger),
		AdminStudentHandler:    handler.NewAdminStudentHandler(rosterService, deviceService, logger),
		JWTMiddleware:          middleware.JWTProtected(cfg.JWTSecret),
		Sweep: func(ctx context.Context, now time.Time) {
			qrService.Sweep(ctx, now)
		},
		Database: sqlDB,
	})

	return app, nil
}
