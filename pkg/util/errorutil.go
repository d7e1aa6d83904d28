package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// authErrorCodes maps expected authentication failures onto wire codes
// and HTTP statuses. Anything not listed here is treated as internal.
var authErrorCodes = map[error]struct {
	Code   string
	Status int
}{
	domain.ErrInvalidCredentials: {"INVALID_CREDENTIALS", http.StatusUnauthorized},
	domain.ErrAccountInactive:    {"ACCOUNT_INACTIVE", http.StatusUnauthorized},
	domain.ErrAccountDeleted:     {"ACCOUNT_DELETED", http.StatusUnauthorized},
	domain.ErrEmailAlreadyTaken:  {"EMAIL_TAKEN", http.StatusBadRequest},
	domain.ErrMissingToken:       {"MISSING_TOKEN", http.StatusBadRequest},
	domain.ErrTokenNotFound:      {"TOKEN_NOT_FOUND", http.StatusUnauthorized},
	domain.ErrTokenExpired:       {"TOKEN_EXPIRED", http.StatusUnauthorized},
	domain.ErrTokenRevoked:       {"TOKEN_REVOKED", http.StatusUnauthorized},
	domain.ErrChallengeNotFound:  {"CHALLENGE_NOT_FOUND", http.StatusUnauthorized},
	domain.ErrChallengeExpired:   {"CHALLENGE_EXPIRED", http.StatusUnauthorized},
	domain.ErrChallengeMismatch:  {"CHALLENGE_MISMATCH", http.StatusUnauthorized},
	domain.ErrUnauthenticated:    {"UNAUTHENTICATED", http.StatusUnauthorized},
	domain.ErrForbidden:          {"FORBIDDEN", http.StatusForbidden},
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	for sentinel, mapping := range authErrorCodes {
		if errors.Is(err, sentinel) {
			return &DomainError{
				Code:       mapping.Code,
				Message:    sentinel.Error(),
				HTTPStatus: mapping.Status,
			}
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
