package handlers

import (
	"errors"
	"net/http"

	"gstmate/internal/common"
	"gstmate/internal/models"
	"gstmate/internal/services"

	"github.com/labstack/echo/v4"
)

// OtpHandlers handles OTP issuance and verification requests.
type OtpHandlers struct {
	otpService services.OtpService
}

func NewOtpHandlers(otpService services.OtpService) *OtpHandlers {
	return &OtpHandlers{otpService: otpService}
}

// RequestOtpRequest represents the OTP issuance payload
type RequestOtpRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// Request issues a fresh code for the (email, type) pair. Inside the
// backoff window it responds 429 with the seconds remaining.
func (h *OtpHandlers) Request(c echo.Context) error {
	ctx := c.Request().Context()

	var req RequestOtpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateEmail(req.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !models.ValidOtpPurpose(req.Type) {
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown OTP type")
	}

	nextRetryIn, err := h.otpService.Issue(ctx, req.Email, req.Type)
	if err != nil {
		var rateLimited *services.RateLimitedError
		if errors.As(err, &rateLimited) {
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error":      "Please wait before requesting another code",
				"retryAfter": rateLimited.RetryAfter,
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue code")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"nextRetryIn": nextRetryIn,
	})
}

// VerifyOtpRequest represents the OTP verification payload
type VerifyOtpRequest struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
	Type  string `json:"type"`
}

// Verify checks a code without consuming it.
func (h *OtpHandlers) Verify(c echo.Context) error {
	ctx := c.Request().Context()

	var req VerifyOtpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateEmail(req.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Otp == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Code is required")
	}
	if !models.ValidOtpPurpose(req.Type) {
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown OTP type")
	}

	if err := h.otpService.Verify(ctx, req.Email, req.Otp, req.Type); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
