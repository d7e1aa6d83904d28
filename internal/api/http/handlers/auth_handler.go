package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

const (
	clientTypeHeader   = "X-Client-Type"
	clientTypeWeb      = "web"
	clientTypeMobile   = "mobile"
	refreshCookieName  = "refreshToken"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	secure bool
}

// NewAuthHandler constructs handler. secure controls the cookie flags
// and should be true outside development.
func NewAuthHandler(authService *service.AuthService, secure bool) *AuthHandler {
	return &AuthHandler{auth: authService, secure: secure}
}

// Register handles POST /v1/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" || req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "name and email required")
	}

	profile, handle, err := h.auth.Register(c.Context(), req.Name, req.Email, req.Phone)
	if err != nil {
		return apperrors.MapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":    dto.RegisterResponse{Account: profile, Handle: handle},
		"message": "check email for the verification code",
	})
}

// Login handles POST /v1/auth/login. Web clients get the refresh token
// in an httpOnly cookie; mobile clients get it in the body.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	profile, pair, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return apperrors.MapError(err)
	}
	return h.respondWithSession(c, &profile, pair)
}

// Logout handles POST /v1/auth/logout. The refresh token is taken from
// the cookie first, then the body.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	refreshToken := c.Cookies(refreshCookieName)
	if refreshToken == "" {
		var req dto.RefreshRequest
		if err := c.BodyParser(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}

	if err := h.auth.Logout(c.Context(), refreshToken); err != nil {
		return apperrors.MapError(err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: "Strict",
	})
	return c.JSON(fiber.Map{"message": "logged out"})
}

// Refresh handles POST /v1/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(refreshCookieName)
	if refreshToken == "" {
		var req dto.RefreshRequest
		if err := c.BodyParser(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}

	pair, err := h.auth.RefreshSession(c.Context(), refreshToken)
	if err != nil {
		return apperrors.MapError(err)
	}
	return h.respondWithSession(c, nil, pair)
}

// ForgotPassword handles POST /v1/auth/forgot-password. The response is
// identical whether or not the email belongs to an account.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email required")
	}

	if err := h.auth.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"message": "check your email to reset your password"})
}

// ResetPassword handles POST /v1/auth/reset-password.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	token := req.Token
	if token == "" {
		token = c.Query("token")
	}
	if req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "password required")
	}

	if err := h.auth.ResetPassword(c.Context(), token, req.Password); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// VerifyEmail handles POST /v1/auth/verify-email?token=...
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if err := h.auth.VerifyEmailByToken(c.Context(), token); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// VerifyOTP handles POST /v1/auth/verify-otp and logs the account in on
// a successful match.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req dto.VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Code == "" || req.Handle == "" {
		return fiber.NewError(http.StatusBadRequest, "otp and handle required")
	}

	profile, pair, err := h.auth.VerifyEmailByOTP(c.Context(), req.Code, req.Handle)
	if err != nil {
		return apperrors.MapError(err)
	}
	return h.respondWithSession(c, &profile, pair)
}

// CreatePassword handles POST /v1/auth/create-password for an
// authenticated account that has not set a password yet.
func (h *AuthHandler) CreatePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "password required")
	}

	pair, err := h.auth.CreatePassword(c.Context(), principal.Account.ID, req.Password)
	if err != nil {
		return apperrors.MapError(err)
	}
	return h.respondWithSession(c, nil, pair)
}

// ChangePassword handles POST /v1/auth/change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "current and new password required")
	}

	if err := h.auth.ChangePassword(c.Context(), principal.Account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"message": "password changed"})
}

// ResendVerification handles POST /v1/auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	handle, err := h.auth.ResendVerification(c.Context(), principal.Account.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{
		"data":    fiber.Map{"handle": handle},
		"message": "check email for the verification code",
	})
}

func (h *AuthHandler) respondWithSession(c *fiber.Ctx, profile *domain.Profile, pair *domain.TokenPair) error {
	resp := dto.SessionResponse{Account: profile, Access: pair.Access}

	switch c.Get(clientTypeHeader) {
	case clientTypeWeb:
		c.Cookie(&fiber.Cookie{
			Name:     refreshCookieName,
			Value:    pair.Refresh.Token,
			Expires:  pair.Refresh.ExpiresAt,
			HTTPOnly: true,
			Secure:   h.secure,
			SameSite: "Strict",
		})
	case clientTypeMobile:
		refresh := pair.Refresh
		resp.Refresh = &refresh
	default:
		return fiber.NewError(http.StatusBadRequest, "invalid or missing client type header")
	}

	return c.JSON(fiber.Map{"data": resp})
}
