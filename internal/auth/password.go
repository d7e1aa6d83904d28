package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when hashing is attempted on empty input.
var ErrEmptyPassword = errors.New("password must not be empty")

// PasswordVault performs one-way password hashing and verification.
// Hashing cost is tunable; higher costs are deliberately slow.
type PasswordVault struct {
	cost int
}

// NewPasswordVault builds a vault with the given bcrypt cost, falling
// back to the library default when the cost is out of range.
func NewPasswordVault(cost int) *PasswordVault {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordVault{cost: cost}
}

// Hash produces a salted one-way digest of the plaintext.
func (v *PasswordVault) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), v.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Matches reports whether plain corresponds to digest. A malformed
// digest yields false, never an error.
func (v *PasswordVault) Matches(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
