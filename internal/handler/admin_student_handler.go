package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/service"
	"github.com/noah-isme/prezenta-go-api/internal/utils"
)

// AdminStudentHandler exposes roster management.
type AdminStudentHandler struct {
	roster  service.RosterService
	devices service.DeviceService
	logger  zerolog.Logger
}

// NewAdminStudentHandler builds the handler.
func NewAdminStudentHandler(roster service.RosterService, devices service.DeviceService, logger zerolog.Logger) *AdminStudentHandler {
	return &AdminStudentHandler{
		roster:  roster,
		devices: devices,
		logger:  logger.With().Str("component", "admin_student_handler").Logger(),
	}
}

// Register mounts routes under /admin/students.
func (h *AdminStudentHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.create)
	router.Delete("/:id", h.delete)
	router.Delete("/:id/device", h.resetDevice)
}

func (h *AdminStudentHandler) list(c *fiber.Ctx) error {
	var query dto.StudentListRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	items, err := h.roster.List(c.UserContext(), adminFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err, "list students")
	}
	return utils.SendSuccess(c, "", items)
}

func (h *AdminStudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.roster.Add(c.UserContext(), adminFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "create student")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *AdminStudentHandler) delete(c *fiber.Ctx) error {
	if err := h.roster.Delete(c.UserContext(), adminFromContext(c), c.Params("id")); err != nil {
		return respondError(c, h.logger, err, "delete student")
	}
	return utils.SendSuccess(c, "student deleted", nil)
}

func (h *AdminStudentHandler) resetDevice(c *fiber.Ctx) error {
	if err := h.devices.Reset(c.UserContext(), adminFromContext(c), c.Params("id")); err != nil {
		return respondError(c, h.logger, err, "reset device")
	}
	return utils.SendSuccess(c, "device binding removed", nil)
}
