package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.ErrorIs(t, ComparePassword(hash, "hunter23"), ErrPasswordMismatch)
}

func TestHashPasswordClampsCost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{"zero", 0, bcrypt.MinCost},
		{"below minimum", 2, bcrypt.MinCost},
		{"in range", 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword("hunter22", tt.cost)
			require.NoError(t, err)
			cost, err := bcrypt.Cost([]byte(hash))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cost)
		})
	}
}

func TestHashPasswordRejectsUnusableInput(t *testing.T) {
	_, err := HashPassword("", 4)
	assert.Error(t, err)

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes+1), 4)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = HashPassword(strings.Repeat("a", MaxPasswordBytes), 4)
	assert.NoError(t, err)
}

func TestComparePasswordMalformedHash(t *testing.T) {
	assert.ErrorIs(t, ComparePassword("not-a-hash", "hunter22"), ErrPasswordMismatch)
	assert.ErrorIs(t, ComparePassword("", ""), ErrPasswordMismatch)
}
