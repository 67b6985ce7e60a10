package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prezenta-go-api/internal/dto"
	"github.com/noah-isme/prezenta-go-api/internal/service"
	"github.com/noah-isme/prezenta-go-api/internal/utils"
)

// AuthHandler serves teacher login and password management.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches the public authentication routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/login", h.login)
	router.Get("/default-password", h.defaultPassword)
}

// RegisterAdmin attaches routes that need an authenticated teacher.
func (h *AuthHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/password", h.changePassword)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.Login(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "log in")
	}

	return utils.SendSuccess(c, "login successful", resp)
}

func (h *AuthHandler) defaultPassword(c *fiber.Ctx) error {
	usingDefault, err := h.service.UsingDefaultPassword(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "check default password")
	}

	return utils.SendSuccess(c, "", dto.DefaultPasswordStatus{UsingDefault: usingDefault})
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	var payload dto.ChangePasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.ChangePassword(c.UserContext(), adminFromContext(c), payload); err != nil {
		return respondError(c, h.logger, err, "change password")
	}

	return utils.SendSuccess(c, "password changed", nil)
}
