package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered            EventType = "account_registered"
	EventAccountActivated             EventType = "account_activated"
	EventEmailVerificationRequested   EventType = "email_verification_requested"
	EventEmailVerified                EventType = "email_verified"
	EventPasswordResetRequested       EventType = "password_reset_requested"
	EventPasswordChanged              EventType = "password_changed"
)

// Event represents a domain event emitted by the auth flows.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AccountID string      `json:"account_id"`
	Email     string      `json:"email,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// VerificationRequestedPayload carries the credentials the notifier
// must deliver for email verification. Never logged verbatim.
type VerificationRequestedPayload struct {
	Code        string `json:"code"`
	Handle      string `json:"handle"`
	VerifyToken string `json:"verify_token"`
}

// PasswordResetRequestedPayload carries reset delivery material.
type PasswordResetRequestedPayload struct {
	ResetToken string `json:"reset_token"`
	Code       string `json:"code"`
	Handle     string `json:"handle"`
}

// AccountActivatedPayload marks first-password creation.
type AccountActivatedPayload struct {
	Name string `json:"name"`
}
