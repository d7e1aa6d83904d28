package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
)

// TokenService issues, verifies, rotates and revokes session tokens.
// ACCESS tokens are stateless JWTs; REFRESH, RESET_PASSWORD and
// VERIFY_EMAIL tokens are opaque values persisted in the TokenStore and
// consumed exactly once at verify time.
type TokenService struct {
	store    repository.TokenStore
	accounts repository.AccountRepository
	access   *auth.AccessTokenManager
	metrics  *observability.Metrics

	refreshTTL time.Duration
	resetTTL   time.Duration
	verifyTTL  time.Duration
}

// NewTokenService builds the service from auth configuration.
func NewTokenService(cfg config.AuthConfig, store repository.TokenStore, accounts repository.AccountRepository, metrics *observability.Metrics) *TokenService {
	return &TokenService{
		store:      store,
		accounts:   accounts,
		access:     auth.NewAccessTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		metrics:    metrics,
		refreshTTL: cfg.RefreshTokenTTL(),
		resetTTL:   cfg.PasswordResetTTL(),
		verifyTTL:  cfg.VerifyEmailTTL(),
	}
}

// AccessManager exposes the access token manager for middleware wiring.
func (s *TokenService) AccessManager() *auth.AccessTokenManager {
	return s.access
}

// IssueSessionPair creates a stateless access token and a persisted
// refresh token for the account.
func (s *TokenService) IssueSessionPair(ctx context.Context, account *domain.Account) (*domain.TokenPair, error) {
	accessToken, accessExp, err := s.access.Generate(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := &domain.SessionToken{
		ID:        uuid.NewString(),
		Value:     uuid.NewString(),
		Kind:      domain.TokenKindRefresh,
		AccountID: account.ID,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := s.store.Put(ctx, refresh); err != nil {
		return nil, err
	}

	s.metrics.RecordTokenIssued(string(domain.TokenKindAccess))
	s.metrics.RecordTokenIssued(string(domain.TokenKindRefresh))

	return &domain.TokenPair{
		Access:  domain.TokenDetail{Token: accessToken, ExpiresAt: accessExp},
		Refresh: domain.TokenDetail{Token: refresh.Value, ExpiresAt: refresh.ExpiresAt},
	}, nil
}

// IssueSingleUseToken persists a short-lived RESET_PASSWORD or
// VERIFY_EMAIL token. Issuing a new token does not revoke earlier ones;
// single use is enforced at verify time instead.
func (s *TokenService) IssueSingleUseToken(ctx context.Context, accountID string, kind domain.TokenKind) (domain.TokenDetail, error) {
	var ttl time.Duration
	switch kind {
	case domain.TokenKindResetPassword:
		ttl = s.resetTTL
	case domain.TokenKindVerifyEmail:
		ttl = s.verifyTTL
	default:
		return domain.TokenDetail{}, fmt.Errorf("kind %s is not a single-use token kind", kind)
	}

	token := &domain.SessionToken{
		ID:        uuid.NewString(),
		Value:     uuid.NewString(),
		Kind:      kind,
		AccountID: accountID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := s.store.Put(ctx, token); err != nil {
		return domain.TokenDetail{}, err
	}

	s.metrics.RecordTokenIssued(string(kind))
	return domain.TokenDetail{Token: token.Value, ExpiresAt: token.ExpiresAt}, nil
}

// Verify checks a token of the given kind. Persisted kinds are consumed
// by this call: the store delete happens before the record is returned,
// so a concurrent duplicate use observes ErrTokenNotFound. ACCESS
// tokens are checked by signature and expiry alone.
func (s *TokenService) Verify(ctx context.Context, value string, kind domain.TokenKind) (*domain.SessionToken, error) {
	if kind == domain.TokenKindAccess {
		claims, err := s.access.Parse(value)
		if err != nil {
			return nil, err
		}
		return &domain.SessionToken{
			Value:     value,
			Kind:      domain.TokenKindAccess,
			AccountID: claims.AccountID,
			ExpiresAt: claims.ExpiresAt.Time,
		}, nil
	}

	token, err := s.store.GetAndDeleteIfPresent(ctx, value, kind)
	if err != nil {
		return nil, err
	}
	if time.Now().After(token.ExpiresAt) {
		// Already deleted by the consume above.
		return nil, domain.ErrTokenExpired
	}
	if token.Blacklisted {
		return nil, domain.ErrTokenRevoked
	}
	return token, nil
}

// Rotate consumes a refresh token and issues a fresh session pair. The
// delete-then-issue ordering is the replay guard: when two rotations
// race, the store hands the record to exactly one of them.
func (s *TokenService) Rotate(ctx context.Context, refreshValue string) (*domain.TokenPair, error) {
	token, err := s.Verify(ctx, refreshValue, domain.TokenKindRefresh)
	if err != nil {
		s.metrics.RecordRotation("rejected")
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, token.AccountID)
	if err != nil {
		s.metrics.RecordRotation("error")
		return nil, fmt.Errorf("load account %s: %w", token.AccountID, err)
	}
	if !account.Active {
		s.metrics.RecordRotation("rejected")
		return nil, domain.ErrAccountInactive
	}
	if account.Deleted {
		s.metrics.RecordRotation("rejected")
		return nil, domain.ErrAccountDeleted
	}

	pair, err := s.IssueSessionPair(ctx, account)
	if err != nil {
		s.metrics.RecordRotation("error")
		return nil, err
	}
	s.metrics.RecordRotation("success")
	return pair, nil
}

// Revoke deletes the matching persisted record. Revoking an absent
// token is not an error.
func (s *TokenService) Revoke(ctx context.Context, value string, kind domain.TokenKind) error {
	deleted, err := s.store.DeleteIfPresent(ctx, value, kind)
	if err != nil {
		return err
	}
	if deleted {
		s.metrics.RecordTokenRevoked(string(kind))
	}
	return nil
}

// RevokeAllForAccount deletes every outstanding token of the kind owned
// by the account.
func (s *TokenService) RevokeAllForAccount(ctx context.Context, accountID string, kind domain.TokenKind) error {
	count, err := s.store.DeleteAllForAccount(ctx, accountID, kind)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		s.metrics.RecordTokenRevoked(string(kind))
	}
	return nil
}
