package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/service"
	"github.com/noah-isme/prezenta-go-api/internal/utils"
)

// AdminAttendanceHandler exposes the teacher views over attendance records.
type AdminAttendanceHandler struct {
	attendance service.AttendanceService
	roster     service.RosterService
	logger     zerolog.Logger
}

// NewAdminAttendanceHandler constructs the handler.
func NewAdminAttendanceHandler(attendance service.AttendanceService, roster service.RosterService, logger zerolog.Logger) *AdminAttendanceHandler {
	return &AdminAttendanceHandler{
		attendance: attendance,
		roster:     roster,
		logger:     logger.With().Str("component", "admin_attendance_handler").Logger(),
	}
}

// Register attaches dashboard, listing and scanner routes.
func (h *AdminAttendanceHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
	router.Get("/attendance", h.list)
	router.Post("/attendance/toggle", h.toggle)
	router.Get("/scanner/:barcode", h.lookupBarcode)
	router.Post("/scanner/mark", h.markByBarcode)
}

func (h *AdminAttendanceHandler) dashboard(c *fiber.Ctx) error {
	resp, err := h.attendance.Dashboard(c.UserContext(), adminFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "load dashboard")
	}
	return utils.SendSuccess(c, "", resp)
}

func (h *AdminAttendanceHandler) list(c *fiber.Ctx) error {
	var query dto.AttendanceListRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	resp, err := h.attendance.List(c.UserContext(), adminFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err, "list attendance")
	}
	return utils.SendSuccess(c, "", resp)
}

func (h *AdminAttendanceHandler) toggle(c *fiber.Ctx) error {
	var payload dto.ToggleAttendanceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.attendance.Toggle(c.UserContext(), adminFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "toggle attendance")
	}

	message := "attendance removed"
	if resp.IsPresent {
		message = "attendance recorded"
	}
	return utils.SendSuccess(c, message, resp)
}

func (h *AdminAttendanceHandler) lookupBarcode(c *fiber.Ctx) error {
	resp, err := h.roster.FindByBarcode(c.UserContext(), adminFromContext(c), c.Params("barcode"))
	if err != nil {
		return respondError(c, h.logger, err, "look up barcode")
	}
	return utils.SendSuccess(c, "", resp)
}

func (h *AdminAttendanceHandler) markByBarcode(c *fiber.Ctx) error {
	var payload dto.BarcodeMarkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.attendance.MarkByBarcode(c.UserContext(), adminFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "mark attendance")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attendance recorded", resp)
}
