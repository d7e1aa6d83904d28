package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

func TestTranslateAccountError(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "accounts_email_key"}
	require.ErrorIs(t, translateAccountError(unique), domain.ErrEmailAlreadyTaken)
	require.ErrorIs(t, translateAccountError(fmt.Errorf("insert: %w", unique)), domain.ErrEmailAlreadyTaken)

	// Other constraint classes pass through untouched.
	other := &pgconn.PgError{Code: "23503"}
	require.Equal(t, error(other), translateAccountError(other))

	plain := errors.New("connection reset")
	require.Equal(t, plain, translateAccountError(plain))
	require.NoError(t, translateAccountError(nil))
}
