package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("secret", 60)

	token, expiresAt, err := tm.GenerateToken("user-1", domain.RoleTechnician)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.RoleTechnician, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestTokensAreUnique(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	a, _, err := tm.GenerateToken("user-1", domain.RoleCustomer)
	require.NoError(t, err)
	b, _, err := tm.GenerateToken("user-1", domain.RoleCustomer)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseTokenExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }

	token, _, err := tm.GenerateToken("user-1", domain.RoleCustomer)
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	other := NewTokenManager("other-secret", 60)
	token, _, err := other.GenerateToken("user-1", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 60).ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewTokenManager("secret", 60).ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, 24*time.Hour, NewTokenManager("s", 0).TTL())
}
