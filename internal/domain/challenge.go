package domain

import "time"

// OTPChallenge is a short-lived numeric code correlated by an opaque
// handle. Verification is single-use: the record is destroyed on match.
type OTPChallenge struct {
	Handle    string
	Code      string
	AccountID string
	ExpiresAt time.Time
}
