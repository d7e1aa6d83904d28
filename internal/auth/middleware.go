package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Account *domain.Account
	Role    domain.Role
}

// Middleware validates bearer access tokens and loads principals.
type Middleware struct {
	tokens      *AccessTokenManager
	accounts    repository.AccountRepository
	permissions *PermissionResolver
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *AccessTokenManager, accounts repository.AccountRepository, permissions *PermissionResolver) *Middleware {
	return &Middleware{tokens: tokens, accounts: accounts, permissions: permissions}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.Parse(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := m.accounts.FindByID(c.Context(), claims.AccountID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.MapError(err)
	}
	// Inactive accounts keep a valid access token until it expires (a
	// fresh registration must still reach create-password); deleted
	// accounts are cut off immediately.
	if account.Deleted {
		return apperrors.NewUnauthorized("account deleted")
	}

	c.Locals(principalKey, &Principal{Account: account, Role: account.Role})
	return c.Next()
}

// RequirePermissions gates the wrapped handler on the role→permission
// map. Identity must already be established; an unauthenticated caller
// gets 401, a known caller lacking a grant gets 403.
func (m *Middleware) RequirePermissions(required ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		for _, permission := range required {
			if !m.permissions.HasPermission(principal.Role, permission) {
				return apperrors.NewForbidden("insufficient permission")
			}
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
