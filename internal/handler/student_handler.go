package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/service"
	"github.com/noah-isme/prezenta-go-api/internal/utils"
)

// StudentHandler serves self-enrolment and device re-registration.
type StudentHandler struct {
	devices service.DeviceService
	logger  zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(devices service.DeviceService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		devices: devices,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// RegisterStudents attaches the enrolment route.
func (h *StudentHandler) RegisterStudents(router fiber.Router) {
	router.Post("/register", h.enroll)
}

// RegisterDevices attaches the re-registration route.
func (h *StudentHandler) RegisterDevices(router fiber.Router) {
	router.Post("/reregister", h.reregister)
}

func (h *StudentHandler) enroll(c *fiber.Ctx) error {
	var payload dto.EnrollRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.UserAgent = c.Get(fiber.HeaderUserAgent)

	resp, err := h.devices.Enroll(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "register student")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration successful", resp)
}

func (h *StudentHandler) reregister(c *fiber.Ctx) error {
	var payload dto.ReregisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.UserAgent = c.Get(fiber.HeaderUserAgent)

	resp, err := h.devices.Reregister(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "re-register device")
	}

	return utils.SendSuccess(c, "device re-registered", resp)
}
