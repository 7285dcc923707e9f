package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", NewValidationError("bad", nil), http.StatusBadRequest, CodeValidation},
		{"unauthorized", NewUnauthorized("nope"), http.StatusUnauthorized, CodeUnauthorized},
		{"inactive at login", NewAccountInactive(http.StatusUnauthorized), http.StatusUnauthorized, CodeAccountInactive},
		{"forbidden", NewForbidden("no"), http.StatusForbidden, CodeForbidden},
		{"not found", NewNotFound("Ticket", nil), http.StatusNotFound, CodeNotFound},
		{"conflict", NewConflict("email already exists", nil), http.StatusBadRequest, CodeConflict},
		{"internal", NewInternalError(errors.New("boom")), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			require.NotNil(t, de)
			assert.Equal(t, tt.status, de.HTTPStatus)
			assert.Equal(t, tt.code, de.Code)
			assert.True(t, IsCode(tt.err, tt.code))
		})
	}
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("connection reset")
	de := ToDomainError(fmt.Errorf("list tickets: %w", cause))

	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Equal(t, "Internal server error", de.Message)
	assert.ErrorIs(t, de, cause)
}

func TestToDomainErrorUnwrapsWrappedDomainError(t *testing.T) {
	wrapped := fmt.Errorf("update: %w", NewForbidden("Not authorized"))
	de := ToDomainError(wrapped)

	assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
	assert.Equal(t, "Not authorized", de.Message)
	assert.Nil(t, ToDomainError(nil))
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "Ticket not found", NewNotFound("Ticket", nil).Error())
}
