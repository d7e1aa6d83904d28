package domain

import "time"

// TokenKind differentiates issued credential families.
type TokenKind string

const (
	TokenKindAccess        TokenKind = "ACCESS"
	TokenKindRefresh       TokenKind = "REFRESH"
	TokenKindResetPassword TokenKind = "RESET_PASSWORD"
	TokenKindVerifyEmail   TokenKind = "VERIFY_EMAIL"
)

// SessionToken is a durable record for a persisted credential. ACCESS
// tokens are self-verifying JWTs and are never stored.
type SessionToken struct {
	ID          string    `json:"id"`
	Value       string    `json:"-"`
	Kind        TokenKind `json:"kind"`
	AccountID   string    `json:"account_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	Blacklisted bool      `json:"blacklisted"`
}

// TokenDetail pairs a token value with its expiry for transport.
type TokenDetail struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenPair carries the access/refresh tokens issued for a session.
type TokenPair struct {
	Access  TokenDetail `json:"access"`
	Refresh TokenDetail `json:"refresh"`
}
