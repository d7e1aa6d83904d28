package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
)

// OTPService issues and verifies one-time passcodes for email
// verification and password reset delivery.
type OTPService struct {
	store   repository.ChallengeStore
	metrics *observability.Metrics
	ttl     time.Duration
	digits  int
}

// NewOTPService builds the service from auth configuration.
func NewOTPService(cfg config.AuthConfig, store repository.ChallengeStore, metrics *observability.Metrics) *OTPService {
	digits := cfg.OTPDigits
	if digits < 4 || digits > 10 {
		digits = 6
	}
	return &OTPService{
		store:   store,
		metrics: metrics,
		ttl:     cfg.OTPTTL(),
		digits:  digits,
	}
}

// Issue generates a fixed-width random code with an unguessable
// correlation handle and persists the pair. Delivery of the code is the
// caller's concern.
func (s *OTPService) Issue(ctx context.Context, accountID string) (*domain.OTPChallenge, error) {
	code, err := s.randomCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp code: %w", err)
	}

	challenge := &domain.OTPChallenge{
		Handle:    uuid.NewString(),
		Code:      code,
		AccountID: accountID,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.store.Put(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// Verify consumes the challenge on an exact code match and returns the
// owning account id. A mismatch leaves the record in place for retry;
// an expired or missing record fails terminally.
func (s *OTPService) Verify(ctx context.Context, code, handle string) (string, error) {
	accountID, err := s.store.GetAndDeleteOnMatch(ctx, handle, code)
	switch err {
	case nil:
		s.metrics.RecordOTPVerification("success")
		return accountID, nil
	case domain.ErrChallengeNotFound:
		s.metrics.RecordOTPVerification("not_found")
	case domain.ErrChallengeExpired:
		s.metrics.RecordOTPVerification("expired")
	case domain.ErrChallengeMismatch:
		s.metrics.RecordOTPVerification("mismatch")
	default:
		s.metrics.RecordOTPVerification("error")
	}
	return "", err
}

func (s *OTPService) randomCode() (string, error) {
	bound := big.NewInt(1)
	for i := 0; i < s.digits; i++ {
		bound.Mul(bound, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", s.digits, n), nil
}
