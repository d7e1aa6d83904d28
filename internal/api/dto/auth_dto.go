package dto

import (
	"github.com/spec-kit/auth-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// RegisterResponse returns the created profile and the OTP correlation
// handle the client must echo back with the emailed code.
type RegisterResponse struct {
	Account domain.Profile `json:"account"`
	Handle  string         `json:"handle"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreatePasswordRequest sets the first password.
type CreatePasswordRequest struct {
	Password string `json:"password"`
}

// ChangePasswordRequest rotates a known password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// RefreshRequest carries a refresh token for clients that cannot use
// the cookie channel.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest starts the reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest completes the reset flow.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// VerifyOTPRequest carries the emailed code and its correlation handle.
type VerifyOTPRequest struct {
	Code   string `json:"otp"`
	Handle string `json:"handle"`
}

// SessionResponse returns issued tokens. Refresh is omitted for web
// clients, which receive it in an httpOnly cookie instead.
type SessionResponse struct {
	Account *domain.Profile     `json:"account,omitempty"`
	Access  domain.TokenDetail  `json:"access"`
	Refresh *domain.TokenDetail `json:"refresh,omitempty"`
}
