package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	mgr := NewAccessTokenManager("test-secret", 15*time.Minute)

	token, expiresAt, err := mgr.Generate("acct-1", domain.RoleAdmin)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := mgr.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "acct-1", claims.AccountID)
	require.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestAccessTokenExpired(t *testing.T) {
	mgr := NewAccessTokenManager("test-secret", time.Millisecond)

	token, _, err := mgr.Generate("acct-1", domain.RolePartner)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = mgr.Parse(token)
	require.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	mgr := NewAccessTokenManager("secret-a", time.Minute)
	other := NewAccessTokenManager("secret-b", time.Minute)

	token, _, err := mgr.Generate("acct-1", domain.RolePartner)
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestAccessTokenGarbage(t *testing.T) {
	mgr := NewAccessTokenManager("test-secret", time.Minute)

	_, err := mgr.Parse("not-a-jwt")
	require.Error(t, err)
}
