package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
)

func TestLoginIssuesSessionAndRefreshRotates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "login@example.com", "correct horse")

	profile, pair, err := env.auth.Login(ctx, "login@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "login@example.com", profile.Email)
	require.NotEmpty(t, pair.Access.Token)
	require.NotEmpty(t, pair.Refresh.Token)

	next, err := env.auth.RefreshSession(ctx, pair.Refresh.Token)
	require.NoError(t, err)
	require.NotEqual(t, pair.Refresh.Token, next.Refresh.Token)

	// A rotated-out refresh token is dead.
	_, err = env.auth.RefreshSession(ctx, pair.Refresh.Token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestLoginErrorTaxonomy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.seedAccount(t, "taxonomy@example.com", "correct horse")

	// Unknown email and wrong password are indistinguishable.
	_, _, err := env.auth.Login(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = env.auth.Login(ctx, "taxonomy@example.com", "wrong horse")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, env.accounts.SetActive(ctx, account.ID, false))
	_, _, err = env.auth.Login(ctx, "taxonomy@example.com", "correct horse")
	require.ErrorIs(t, err, domain.ErrAccountInactive)

	env.accounts.mu.Lock()
	env.accounts.accounts[account.ID].Active = true
	env.accounts.accounts[account.ID].Deleted = true
	env.accounts.mu.Unlock()
	_, _, err = env.auth.Login(ctx, "taxonomy@example.com", "correct horse")
	require.ErrorIs(t, err, domain.ErrAccountDeleted)
}

func TestLoginRejectsAccountWithoutPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account := &domain.Account{
		Name:   "No Password Yet",
		Email:  "fresh@example.com",
		Role:   domain.RolePartner,
		Active: true,
	}
	require.NoError(t, env.accounts.Create(ctx, account))

	_, _, err := env.auth.Login(ctx, "fresh@example.com", "")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "logout@example.com", "correct horse")

	_, pair, err := env.auth.Login(ctx, "logout@example.com", "correct horse")
	require.NoError(t, err)

	require.ErrorIs(t, env.auth.Logout(ctx, ""), domain.ErrMissingToken)

	require.NoError(t, env.auth.Logout(ctx, pair.Refresh.Token))
	// Logging out twice is still a success.
	require.NoError(t, env.auth.Logout(ctx, pair.Refresh.Token))

	_, err = env.auth.RefreshSession(ctx, pair.Refresh.Token)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestRefreshSessionRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.RefreshSession(context.Background(), "")
	require.ErrorIs(t, err, domain.ErrMissingToken)
}

func TestRegisterIssuesVerificationChallenge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile, handle, err := env.auth.Register(ctx, "New Partner", "new@example.com", "+15550001111")
	require.NoError(t, err)
	require.NotEmpty(t, handle)
	require.Equal(t, "new@example.com", profile.Email)
	require.Equal(t, domain.RolePartner, profile.Role)
	require.False(t, profile.Active)
	require.False(t, profile.EmailVerified)

	event, ok := env.dispatcher.lastOfType(events.EventAccountRegistered)
	require.True(t, ok)
	payload, ok := event.Payload.(events.VerificationRequestedPayload)
	require.True(t, ok)
	require.Equal(t, handle, payload.Handle)
	require.NotEmpty(t, payload.Code)
	require.NotEmpty(t, payload.VerifyToken)

	_, _, err = env.auth.Register(ctx, "Dup", "new@example.com", "")
	require.ErrorIs(t, err, domain.ErrEmailAlreadyTaken)
}

func TestVerifyEmailByOTPThenSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, handle, err := env.auth.Register(ctx, "OTP Partner", "otp@example.com", "")
	require.NoError(t, err)

	event, ok := env.dispatcher.lastOfType(events.EventAccountRegistered)
	require.True(t, ok)
	payload := event.Payload.(events.VerificationRequestedPayload)

	// A wrong code keeps the challenge alive for a retry.
	wrongCode := "000000"
	if payload.Code == wrongCode {
		wrongCode = "111111"
	}
	_, _, err = env.auth.VerifyEmailByOTP(ctx, wrongCode, handle)
	require.ErrorIs(t, err, domain.ErrChallengeMismatch)

	profile, pair, err := env.auth.VerifyEmailByOTP(ctx, payload.Code, handle)
	require.NoError(t, err)
	require.True(t, profile.EmailVerified)
	require.NotEmpty(t, pair.Access.Token)

	// The challenge was consumed with the success.
	_, _, err = env.auth.VerifyEmailByOTP(ctx, payload.Code, handle)
	require.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestVerifyEmailByToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.auth.Register(ctx, "Token Partner", "vtoken@example.com", "")
	require.NoError(t, err)
	event, _ := env.dispatcher.lastOfType(events.EventAccountRegistered)
	payload := event.Payload.(events.VerificationRequestedPayload)

	require.ErrorIs(t, env.auth.VerifyEmailByToken(ctx, ""), domain.ErrMissingToken)

	require.NoError(t, env.auth.VerifyEmailByToken(ctx, payload.VerifyToken))

	account, err := env.accounts.FindByEmail(ctx, "vtoken@example.com")
	require.NoError(t, err)
	require.True(t, account.EmailVerified)

	// Consumed tokens and revoked siblings are both rejected uniformly.
	require.ErrorIs(t, env.auth.VerifyEmailByToken(ctx, payload.VerifyToken), domain.ErrUnauthenticated)
}

func TestResendVerificationRevokesNothingButReissues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, firstHandle, err := env.auth.Register(ctx, "Resend Partner", "resend@example.com", "")
	require.NoError(t, err)
	account, err := env.accounts.FindByEmail(ctx, "resend@example.com")
	require.NoError(t, err)

	secondHandle, err := env.auth.ResendVerification(ctx, account.ID)
	require.NoError(t, err)
	require.NotEqual(t, firstHandle, secondHandle)

	event, ok := env.dispatcher.lastOfType(events.EventEmailVerificationRequested)
	require.True(t, ok)
	payload := event.Payload.(events.VerificationRequestedPayload)
	require.Equal(t, secondHandle, payload.Handle)

	_, _, err = env.auth.VerifyEmailByOTP(ctx, payload.Code, secondHandle)
	require.NoError(t, err)
}

func TestCreatePasswordActivatesAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.auth.Register(ctx, "Setup Partner", "setup@example.com", "")
	require.NoError(t, err)
	account, err := env.accounts.FindByEmail(ctx, "setup@example.com")
	require.NoError(t, err)
	require.False(t, account.Active)

	pair, err := env.auth.CreatePassword(ctx, account.ID, "first password")
	require.NoError(t, err)
	require.NotEmpty(t, pair.Refresh.Token)

	profile, _, err := env.auth.Login(ctx, "setup@example.com", "first password")
	require.NoError(t, err)
	require.True(t, profile.Active)
}

func TestRequestPasswordResetIsEnumerationSafe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Unknown emails succeed without emitting anything.
	require.NoError(t, env.auth.RequestPasswordReset(ctx, "ghost@example.com"))
	_, ok := env.dispatcher.lastOfType(events.EventPasswordResetRequested)
	require.False(t, ok)

	env.seedAccount(t, "reset@example.com", "old password")
	require.NoError(t, env.auth.RequestPasswordReset(ctx, "reset@example.com"))
	event, ok := env.dispatcher.lastOfType(events.EventPasswordResetRequested)
	require.True(t, ok)
	payload := event.Payload.(events.PasswordResetRequestedPayload)
	require.NotEmpty(t, payload.ResetToken)
	require.NotEmpty(t, payload.Code)
}

func TestResetPasswordConsumesTokenAndRevokesSiblings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "resetflow@example.com", "old password")

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "resetflow@example.com"))
	first, _ := env.dispatcher.lastOfType(events.EventPasswordResetRequested)
	firstToken := first.Payload.(events.PasswordResetRequestedPayload).ResetToken

	require.NoError(t, env.auth.RequestPasswordReset(ctx, "resetflow@example.com"))
	second, _ := env.dispatcher.lastOfType(events.EventPasswordResetRequested)
	secondToken := second.Payload.(events.PasswordResetRequestedPayload).ResetToken
	require.NotEqual(t, firstToken, secondToken)

	require.ErrorIs(t, env.auth.ResetPassword(ctx, "", "x"), domain.ErrMissingToken)

	require.NoError(t, env.auth.ResetPassword(ctx, firstToken, "new password"))

	// The sibling issued by the second request is revoked with the reset.
	require.ErrorIs(t, env.auth.ResetPassword(ctx, secondToken, "other password"), domain.ErrUnauthenticated)
	// The consumed token cannot be replayed either.
	require.ErrorIs(t, env.auth.ResetPassword(ctx, firstToken, "other password"), domain.ErrUnauthenticated)

	_, _, err := env.auth.Login(ctx, "resetflow@example.com", "old password")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = env.auth.Login(ctx, "resetflow@example.com", "new password")
	require.NoError(t, err)
}

func TestAccountBoundOperationsRejectUnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	unknownID := uuid.NewString()

	// A credential whose account has since vanished fails as an
	// authentication error, never as a raw repository error.
	_, err := env.auth.CreatePassword(ctx, unknownID, "new password")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = env.auth.ResendVerification(ctx, unknownID)
	require.ErrorIs(t, err, domain.ErrUnauthenticated)

	err = env.auth.ChangePassword(ctx, unknownID, "old", "new")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestChangePasswordChecksCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	account := env.seedAccount(t, "change@example.com", "old password")

	err := env.auth.ChangePassword(ctx, account.ID, "not the password", "new password")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, env.auth.ChangePassword(ctx, account.ID, "old password", "new password"))

	_, _, err = env.auth.Login(ctx, "change@example.com", "new password")
	require.NoError(t, err)
}
