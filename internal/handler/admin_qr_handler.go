package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/service"
	"github.com/noah-isme/prezenta-go-api/internal/utils"
)

// AdminQRHandler issues rotating attendance tokens and the registration QR.
type AdminQRHandler struct {
	service service.QRTokenService
	logger  zerolog.Logger
}

// NewAdminQRHandler constructs the handler.
func NewAdminQRHandler(service service.QRTokenService, logger zerolog.Logger) *AdminQRHandler {
	return &AdminQRHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_qr_handler").Logger(),
	}
}

// Register attaches admin QR routes.
func (h *AdminQRHandler) Register(router fiber.Router) {
	router.Post("/", h.issue)
	router.Get("/registration", h.registration)
}

func (h *AdminQRHandler) issue(c *fiber.Ctx) error {
	var payload dto.QRIssueRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	resp, err := h.service.IssueForSession(c.UserContext(), adminFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "issue qr token")
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "qr token issued", resp)
}

func (h *AdminQRHandler) registration(c *fiber.Ctx) error {
	resp, err := h.service.RegistrationQR(c.UserContext(), adminFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "render registration qr")
	}

	return utils.SendSuccess(c, "", resp)
}
