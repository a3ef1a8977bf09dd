package handlers

import (
	"net/http"
	"time"

	"gstmate/internal/common"
	"gstmate/internal/models"
	"gstmate/internal/repositories"
	"gstmate/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

const refreshCookieName = "refresh_token"

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService  services.AuthService
	tokenService services.TokenService
	otpService   services.OtpService
	userRepo     repositories.UserRepository
	refreshTTL   time.Duration
	secure       bool
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authService services.AuthService, tokenService services.TokenService, otpService services.OtpService, userRepo repositories.UserRepository, refreshTTL time.Duration, secure bool) *AuthHandlers {
	return &AuthHandlers{
		authService:  authService,
		tokenService: tokenService,
		otpService:   otpService,
		userRepo:     userRepo,
		refreshTTL:   refreshTTL,
		secure:       secure,
	}
}

// setRefreshCookie stores the refresh token in an httpOnly cookie scoped to
// the refresh endpoint so it never rides along on other requests.
func (h *AuthHandlers) setRefreshCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/auth/refresh",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth/refresh",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// AuthResponse pairs the user with the issued tokens.
type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Otp        string `json:"otp"`
	AdminEmail string `json:"adminEmail"`
	AdminOtp   string `json:"adminOtp"`
}

// Register handles OTP-gated account registration for both roles.
func (h *AuthHandlers) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := common.ValidateEmail(req.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 6 characters")
	}
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleStaff {
		return echo.NewHTTPError(http.StatusBadRequest, "Role must be admin or staff")
	}
	if req.Role == models.RoleStaff {
		if err := common.ValidateEmail(req.AdminEmail); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "A valid admin email is required for staff registration")
		}
	}

	user, err := h.authService.Register(ctx, &services.RegisterInput{
		Email:      req.Email,
		Username:   req.Username,
		Password:   req.Password,
		Name:       req.Name,
		Role:       req.Role,
		Otp:        req.Otp,
		AdminEmail: req.AdminEmail,
		AdminOtp:   req.AdminOtp,
	})
	if err != nil {
		return mapServiceError(err)
	}

	tokens, err := h.tokenService.GenerateTokens(ctx, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate tokens")
	}
	h.setRefreshCookie(c, tokens.RefreshToken)

	return c.JSON(http.StatusCreated, AuthResponse{User: user, AccessToken: tokens.AccessToken})
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user login with email and password
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	user, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	tokens, err := h.tokenService.GenerateTokens(ctx, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate tokens")
	}
	h.setRefreshCookie(c, tokens.RefreshToken)

	return c.JSON(http.StatusOK, AuthResponse{User: user, AccessToken: tokens.AccessToken})
}

// GoogleLoginRequest carries the Google ID token from the sign-in widget.
type GoogleLoginRequest struct {
	Credential string `json:"credential"`
}

// GoogleLogin handles Google-identity sign-in and first-time bootstrap.
func (h *AuthHandlers) GoogleLogin(c echo.Context) error {
	ctx := c.Request().Context()

	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Credential == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Credential is required")
	}

	user, err := h.authService.LoginWithGoogle(ctx, req.Credential)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Google sign-in failed")
	}

	tokens, err := h.tokenService.GenerateTokens(ctx, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate tokens")
	}
	h.setRefreshCookie(c, tokens.RefreshToken)

	return c.JSON(http.StatusOK, AuthResponse{User: user, AccessToken: tokens.AccessToken})
}

// Refresh rotates the refresh token from the httpOnly cookie and returns a
// fresh access token.
func (h *AuthHandlers) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing refresh token")
	}

	userID, err := h.tokenService.ConsumeRefreshToken(ctx, cookie.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired refresh token")
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User no longer exists")
	}

	tokens, err := h.tokenService.GenerateTokens(ctx, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate tokens")
	}
	h.setRefreshCookie(c, tokens.RefreshToken)

	return c.JSON(http.StatusOK, map[string]string{"accessToken": tokens.AccessToken})
}

// Logout revokes the refresh token and clears the cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if cookie, err := c.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if err := h.tokenService.RevokeRefreshToken(ctx, cookie.Value); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to revoke token")
		}
	}
	h.clearRefreshCookie(c)

	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me handles getting current user profile
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}

	return c.JSON(http.StatusOK, map[string]*models.User{"user": user})
}

// ForgotPasswordRequest starts the password reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a password-reset OTP when the account exists. The
// response does not reveal whether it does.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateEmail(req.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := h.userRepo.GetByEmail(ctx, req.Email); err == nil {
		if _, err := h.otpService.Issue(ctx, req.Email, models.OtpPurposePasswordReset); err != nil {
			return mapServiceError(err)
		}
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// ResetPasswordRequest completes the password reset flow.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Otp         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword consumes the reset OTP and stores the new password.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := common.ValidateEmail(req.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.NewPassword) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 6 characters")
	}

	if err := h.authService.ResetPassword(ctx, req.Email, req.Otp, req.NewPassword); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
