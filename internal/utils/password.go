package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is enforced on registration before hashing.
const MinPasswordLen = 8

// ErrWeakPassword is returned by HashPassword for passwords that are too
// short or exceed bcrypt's 72 byte input limit.
var ErrWeakPassword = errors.New("password must be between 8 and 72 bytes")

// HashPassword returns bcrypt hash using the given cost.  Costs outside
// bcrypt's accepted range fall back to the library default.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) < MinPasswordLen || len(plain) > 72 {
		return "", ErrWeakPassword
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
