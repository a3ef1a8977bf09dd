package handlers

import (
	"errors"
	"net/http"

	"gstmate/internal/services"

	"github.com/labstack/echo/v4"
)

// mapServiceError translates service-layer sentinels into HTTP errors.
// Unrecognized errors surface their message as a 400: service validation
// messages are already user-facing and specific.
func mapServiceError(err error) error {
	var conflict *services.ConflictError
	var rateLimited *services.RateLimitedError

	switch {
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "Access denied")
	case errors.As(err, &conflict):
		return echo.NewHTTPError(http.StatusConflict, conflict.Message)
	case errors.As(err, &rateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, rateLimited.Error())
	case errors.Is(err, services.ErrSequenceViolation),
		errors.Is(err, services.ErrOrderViolation),
		errors.Is(err, services.ErrNoFieldsToUpdate),
		errors.Is(err, services.ErrIncompleteReassignment),
		errors.Is(err, services.ErrOtpNotFound),
		errors.Is(err, services.ErrOtpExpired),
		errors.Is(err, services.ErrIdentityOtpInvalid),
		errors.Is(err, services.ErrAuthorizationOtpInvalid),
		errors.Is(err, services.ErrAdminNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
