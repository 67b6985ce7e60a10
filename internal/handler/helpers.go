package handler

import (
	"errors"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prezenta-go-api/internal/middleware"
	"github.com/noah-isme/prezenta-go-api/internal/service"
	"github.com/noah-isme/prezenta-go-api/internal/utils"
)

var rejectionStatus = map[service.RejectionReason]int{
	service.ReasonInvalidOrExpiredToken: fiber.StatusBadRequest,
	service.ReasonUnregisteredDevice:    fiber.StatusForbidden,
	service.ReasonUnknownStudent:        fiber.StatusForbidden,
	service.ReasonAlreadyMarked:         fiber.StatusConflict,
	service.ReasonNetworkNotAllowed:     fiber.StatusForbidden,
	service.ReasonLocationRequired:      fiber.StatusBadRequest,
	service.ReasonOutsideClassroom:      fiber.StatusForbidden,
}

func adminFromContext(c *fiber.Ctx) service.AdminContext {
	admin := service.AdminContext{}
	if v, ok := c.Locals(middleware.LocalUsername).(string); ok {
		admin.Username = strings.TrimSpace(v)
	}
	if v, ok := c.Locals(middleware.LocalRole).(string); ok {
		admin.Role = v
	}
	return admin
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := middleware.RequestLogger(base, c)
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// respondError maps service errors onto HTTP responses. Anything unexpected is
// logged and reported as a generic failure to action.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, action string) error {
	var (
		rejection *service.Rejection
		cooldown  *service.CooldownError
	)

	switch {
	case isValidationError(err):
		return utils.SendFailure(c, fiber.StatusBadRequest, "invalid_request", err.Error(), nil)
	case errors.As(err, &rejection):
		status, ok := rejectionStatus[rejection.Reason]
		if !ok {
			status = fiber.StatusBadRequest
		}
		var details interface{}
		if len(rejection.Details) > 0 {
			details = rejection.Details
		}
		return utils.SendFailure(c, status, string(rejection.Reason), rejection.Message, details)
	case errors.As(err, &cooldown):
		return utils.SendFailure(c, fiber.StatusTooManyRequests, "device_cooldown", cooldown.Error(), fiber.Map{
			"remaining_seconds": int(math.Ceil(cooldown.Remaining.Seconds())),
		})
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrIncorrectPassword):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrStudentNotFound), errors.Is(err, service.ErrTeacherNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStudentExists), errors.Is(err, service.ErrAlreadyRegistered):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAlreadyMarked):
		return utils.SendFailure(c, fiber.StatusConflict, string(service.ReasonAlreadyMarked), err.Error(), nil)
	case errors.Is(err, service.ErrInvalidConfirmation):
		return utils.SendFailure(c, fiber.StatusBadRequest, "invalid_confirmation", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidStudentDetails),
		errors.Is(err, service.ErrInvalidClassroom),
		errors.Is(err, service.ErrInvalidScan):
		return utils.SendFailure(c, fiber.StatusBadRequest, "invalid_request", err.Error(), nil)
	default:
		requestLogger(logger, c).Error().Err(err).Msgf("failed to %s", action)
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to "+action)
	}
}
