package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/prezenta-go-api/internal/config"
	"github.com/noah-isme/prezenta-go-api/internal/handler"
	"github.com/noah-isme/prezenta-go-api/internal/middleware"
	"github.com/noah-isme/prezenta-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AttendanceHandler      *handler.AttendanceHandler
	StudentHandler         *handler.StudentHandler
	AuthHandler            *handler.AuthHandler
	AdminQRHandler         *handler.AdminQRHandler
	AdminAttendanceHandler *handler.AdminAttendanceHandler
	AdminStudentHandler    *handler.AdminStudentHandler
	JWTMiddleware          fiber.Handler
	Sweep                  middleware.SweepFunc
	Database               handler.Pinger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	if deps.Sweep != nil {
		api.Use(middleware.Sweep(deps.Sweep, cfg.Attendance.SweepInterval))
	}
	api.Get("/health", handler.HealthCheck(cfg, deps.Database))

	if deps.StudentHandler != nil {
		deps.StudentHandler.RegisterStudents(api.Group("/students"))
		deps.StudentHandler.RegisterDevices(api.Group("/devices"))
	}

	if deps.AttendanceHandler != nil {
		var guards []fiber.Handler
		if cfg.ScanRateLimit > 0 {
			guards = append(guards, middleware.RateLimit("scan", cfg.ScanRateLimit, time.Minute))
		}
		deps.AttendanceHandler.Register(api.Group("/attendance"), guards...)
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"))
	}

	// Teacher console
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}
	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole("admin", "teacher"))

	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterAdmin(admin)
	}
	if deps.AdminQRHandler != nil {
		deps.AdminQRHandler.Register(admin.Group("/qr"))
	}
	if deps.AdminAttendanceHandler != nil {
		deps.AdminAttendanceHandler.Register(admin)
	}
	if deps.AdminStudentHandler != nil {
		deps.AdminStudentHandler.Register(admin.Group("/students"))
	}
}
