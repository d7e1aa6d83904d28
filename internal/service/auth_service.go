package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
)

// AuthService composes the password vault, token service and OTP
// service into the login, logout, refresh, reset and verification
// flows. Collaborator failures never leave this layer raw: expected
// outcomes map onto the error taxonomy in the domain package, and
// unexpected faults are logged in full and surfaced generically.
type AuthService struct {
	accounts   repository.AccountRepository
	tokens     *TokenService
	otp        *OTPService
	vault      *auth.PasswordVault
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// AuthDependencies bundles the orchestrator's collaborators.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Tokens      *TokenService
	OTP         *OTPService
	Vault       *auth.PasswordVault
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// NewAuthService builds the orchestrator.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		tokens:     deps.Tokens,
		otp:        deps.OTP,
		vault:      deps.Vault,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// Register creates an account without a password, issues an email
// verification challenge and hands the code to the notifier. The
// account stays inactive until its first password is set.
func (s *AuthService) Register(ctx context.Context, name, email, phone string) (domain.Profile, string, error) {
	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return domain.Profile{}, "", domain.ErrEmailAlreadyTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, "", err
	}

	account := &domain.Account{
		Name:  name,
		Email: email,
		Phone: phone,
		Role:  domain.RolePartner,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.Profile{}, "", err
	}

	challenge, verifyToken, err := s.issueVerification(ctx, account.ID)
	if err != nil {
		return domain.Profile{}, "", err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAccountRegistered,
		AccountID: account.ID,
		Email:     account.Email,
		Timestamp: time.Now(),
		Payload: events.VerificationRequestedPayload{
			Code:        challenge.Code,
			Handle:      challenge.Handle,
			VerifyToken: verifyToken.Token,
		},
	})

	return account.Profile(), challenge.Handle, nil
}

// CreatePassword sets the first password for an authenticated account,
// activates it and opens a session.
func (s *AuthService) CreatePassword(ctx context.Context, accountID, password string) (*domain.TokenPair, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	hash, err := s.vault.Hash(password)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return nil, err
	}
	if err := s.accounts.SetActive(ctx, account.ID, true); err != nil {
		return nil, err
	}
	account.PasswordHash = hash
	account.Active = true

	pair, err := s.tokens.IssueSessionPair(ctx, account)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAccountActivated,
		AccountID: account.ID,
		Email:     account.Email,
		Timestamp: time.Now(),
		Payload:   events.AccountActivatedPayload{Name: account.Name},
	})

	return pair, nil
}

// Login verifies credentials and issues a session pair. Unknown email
// and wrong password produce the same error so the endpoint cannot be
// used to enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Profile, *domain.TokenPair, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.metrics.RecordLogin("invalid_credentials")
			return domain.Profile{}, nil, domain.ErrInvalidCredentials
		}
		s.metrics.RecordLogin("error")
		return domain.Profile{}, nil, err
	}

	if !account.Active {
		s.metrics.RecordLogin("inactive")
		return domain.Profile{}, nil, domain.ErrAccountInactive
	}
	if account.Deleted {
		s.metrics.RecordLogin("deleted")
		return domain.Profile{}, nil, domain.ErrAccountDeleted
	}
	if account.PasswordHash == "" || !s.vault.Matches(password, account.PasswordHash) {
		s.metrics.RecordLogin("invalid_credentials")
		return domain.Profile{}, nil, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssueSessionPair(ctx, account)
	if err != nil {
		s.metrics.RecordLogin("error")
		return domain.Profile{}, nil, err
	}

	s.metrics.RecordLogin("success")
	return account.Profile(), pair, nil
}

// Logout revokes the refresh token. Revoking an already-absent token
// still reports success.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return domain.ErrMissingToken
	}
	return s.tokens.Revoke(ctx, refreshToken, domain.TokenKindRefresh)
}

// RefreshSession rotates the refresh token into a new session pair.
// Every internal failure surfaces uniformly so callers cannot probe
// which sub-check rejected the token.
func (s *AuthService) RefreshSession(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, domain.ErrMissingToken
	}

	pair, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		s.logger.Debug("refresh rejected", zap.Error(err))
		return nil, domain.ErrUnauthenticated
	}
	return pair, nil
}

// RequestPasswordReset issues a reset token and an OTP challenge for
// the account and hands both to the notifier. Unknown emails succeed
// silently; the response shape never reveals whether an account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	resetToken, err := s.tokens.IssueSingleUseToken(ctx, account.ID, domain.TokenKindResetPassword)
	if err != nil {
		return err
	}
	challenge, err := s.otp.Issue(ctx, account.ID)
	if err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPasswordResetRequested,
		AccountID: account.ID,
		Email:     account.Email,
		Timestamp: time.Now(),
		Payload: events.PasswordResetRequestedPayload{
			ResetToken: resetToken.Token,
			Code:       challenge.Code,
			Handle:     challenge.Handle,
		},
	})
	return nil
}

// ResetPassword consumes the reset token, stores the new password hash
// and revokes every other outstanding reset token for the account so a
// stale second link cannot be replayed.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return domain.ErrMissingToken
	}

	token, err := s.tokens.Verify(ctx, resetToken, domain.TokenKindResetPassword)
	if err != nil {
		s.logger.Debug("password reset rejected", zap.Error(err))
		return domain.ErrUnauthenticated
	}

	hash, err := s.vault.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePasswordHash(ctx, token.AccountID, hash); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForAccount(ctx, token.AccountID, domain.TokenKindResetPassword); err != nil {
		s.logger.Warn("failed to revoke outstanding reset tokens", zap.Error(err))
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPasswordChanged,
		AccountID: token.AccountID,
		Timestamp: time.Now(),
	})
	return nil
}

// VerifyEmailByToken consumes the verification token, marks the email
// verified and revokes the remaining verification tokens.
func (s *AuthService) VerifyEmailByToken(ctx context.Context, verifyToken string) error {
	if verifyToken == "" {
		return domain.ErrMissingToken
	}

	token, err := s.tokens.Verify(ctx, verifyToken, domain.TokenKindVerifyEmail)
	if err != nil {
		s.logger.Debug("email verification rejected", zap.Error(err))
		return domain.ErrUnauthenticated
	}

	if err := s.tokens.RevokeAllForAccount(ctx, token.AccountID, domain.TokenKindVerifyEmail); err != nil {
		s.logger.Warn("failed to revoke outstanding verify tokens", zap.Error(err))
	}
	if err := s.accounts.SetEmailVerified(ctx, token.AccountID, true); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventEmailVerified,
		AccountID: token.AccountID,
		Timestamp: time.Now(),
	})
	return nil
}

// VerifyEmailByOTP consumes the challenge on a correct code, marks the
// email verified and opens a session for immediate login. Challenge
// outcomes surface typed: a mismatch leaves the record available for
// retry within its expiry window.
func (s *AuthService) VerifyEmailByOTP(ctx context.Context, code, handle string) (domain.Profile, *domain.TokenPair, error) {
	accountID, err := s.otp.Verify(ctx, code, handle)
	if err != nil {
		return domain.Profile{}, nil, err
	}

	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return domain.Profile{}, nil, err
	}

	if err := s.accounts.SetEmailVerified(ctx, account.ID, true); err != nil {
		return domain.Profile{}, nil, err
	}
	account.EmailVerified = true

	pair, err := s.tokens.IssueSessionPair(ctx, account)
	if err != nil {
		return domain.Profile{}, nil, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventEmailVerified,
		AccountID: account.ID,
		Email:     account.Email,
		Timestamp: time.Now(),
	})
	return account.Profile(), pair, nil
}

// ResendVerification issues a fresh challenge and verification token
// for the account and hands them to the notifier.
func (s *AuthService) ResendVerification(ctx context.Context, accountID string) (string, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return "", err
	}

	challenge, verifyToken, err := s.issueVerification(ctx, account.ID)
	if err != nil {
		return "", err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventEmailVerificationRequested,
		AccountID: account.ID,
		Email:     account.Email,
		Timestamp: time.Now(),
		Payload: events.VerificationRequestedPayload{
			Code:        challenge.Code,
			Handle:      challenge.Handle,
			VerifyToken: verifyToken.Token,
		},
	})
	return challenge.Handle, nil
}

// ChangePassword verifies the current password before updating to the
// new hash.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.PasswordHash == "" || !s.vault.Matches(currentPassword, account.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.vault.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPasswordChanged,
		AccountID: account.ID,
		Email:     account.Email,
		Timestamp: time.Now(),
	})
	return nil
}

// loadAccount resolves an account id carried by an already-verified
// credential. A missing row means the account vanished after the
// credential was issued; that surfaces as an authentication failure,
// not a raw repository error.
func (s *AuthService) loadAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return account, nil
}

func (s *AuthService) issueVerification(ctx context.Context, accountID string) (*domain.OTPChallenge, domain.TokenDetail, error) {
	challenge, err := s.otp.Issue(ctx, accountID)
	if err != nil {
		return nil, domain.TokenDetail{}, err
	}
	verifyToken, err := s.tokens.IssueSingleUseToken(ctx, accountID, domain.TokenKindVerifyEmail)
	if err != nil {
		return nil, domain.TokenDetail{}, err
	}
	return challenge, verifyToken, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
