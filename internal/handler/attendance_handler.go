package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/service"
	"github.com/noah-isme/prezenta-go-api/internal/utils"
)

// AttendanceHandler serves the student scan endpoint.
type AttendanceHandler struct {
	service service.AttendanceService
	logger  zerolog.Logger
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service service.AttendanceService, logger zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger.With().Str("component", "attendance_handler").Logger(),
	}
}

// Register attaches the scan route. Extra handlers, such as a rate limiter,
// run before the scan.
func (h *AttendanceHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(guards, h.verify)
	router.Post("/verify", handlers...)
}

func (h *AttendanceHandler) verify(c *fiber.Ctx) error {
	var payload dto.ScanRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendFailure(c, fiber.StatusBadRequest, "invalid_request", "invalid payload", nil)
	}
	payload.PeerIP = c.Context().RemoteIP().String()
	payload.ForwardedFor = c.Get(fiber.HeaderXForwardedFor)

	result, err := h.service.Verify(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "verify attendance")
	}

	return utils.SendSuccess(c, "Attendance recorded for "+result.StudentName, result)
}
