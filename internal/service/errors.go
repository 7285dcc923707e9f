package service

import (
	"errors"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// repoError converts repository failures into domain errors. resource names
// the record in not-found messages.
func repoError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	if errors.Is(err, repository.ErrInvalidReference) {
		return apperrors.NewValidationError("Referenced record does not exist", nil)
	}
	if dup, ok := repository.IsDuplicate(err); ok {
		return apperrors.NewConflict(dup.Error(), map[string]any{"field": dup.Field})
	}
	return apperrors.NewInternalError(err)
}

// checkID rejects identifiers that are not UUIDs.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError("Invalid ID format", nil)
	}
	return nil
}
