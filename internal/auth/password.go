package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt reads.
const MaxPasswordBytes = 72

var (
	// ErrPasswordMismatch is returned for a wrong password or an unusable hash.
	ErrPasswordMismatch = errors.New("password does not match")
	ErrPasswordTooLong  = errors.New("password exceeds 72 bytes")
	errEmptyPassword    = errors.New("empty password")
)

// HashPassword hashes password with cost clamped into bcrypt's accepted range.
// bcrypt ignores bytes past 72, so longer passwords are rejected rather than
// silently truncated.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errEmptyPassword
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword returns nil when plain matches hashed and
// ErrPasswordMismatch otherwise.
func ComparePassword(hashed, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
