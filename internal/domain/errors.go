package domain

import "errors"

// Expected authentication failures. Every collaborator error is translated
// to one of these before leaving the service layer; anything else is a
// genuine fault (store unreachable and the like) and is logged in full
// before being surfaced as ErrUnauthenticated.
var (
	// ErrInvalidCredentials merges unknown-email and wrong-password so the
	// login endpoint cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAccountDeleted     = errors.New("account is deleted")
	ErrEmailAlreadyTaken  = errors.New("email already taken")

	ErrMissingToken  = errors.New("no token provided")
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenRevoked  = errors.New("token revoked")

	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrChallengeMismatch = errors.New("incorrect code")

	ErrUnauthenticated = errors.New("please authenticate")
	ErrForbidden       = errors.New("insufficient permission")
)
