package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AdminService runs bulk ticket operations.
type AdminService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AdminDependencies bundles collaborators for admin service.
type AdminDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

func NewAdminService(deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AdminService{tickets: deps.TicketRepo, dispatcher: deps.Dispatcher, logger: logger, now: clock}
}

// BulkAssign sets the same assignee on every listed ticket. Status is left
// alone and the target's role is not checked.
func (s *AdminService) BulkAssign(ctx context.Context, caller *domain.User, ids []string, technicianID string) (domain.BulkResult, error) {
	if err := s.guard(caller, ids); err != nil {
		return domain.BulkResult{}, err
	}
	if technicianID == "" {
		return domain.BulkResult{}, apperrors.NewValidationError("Technician ID is required", nil)
	}
	if err := checkID(technicianID); err != nil {
		return domain.BulkResult{}, err
	}

	result, err := s.tickets.BulkAssign(ctx, ids, technicianID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return domain.BulkResult{}, apperrors.NewNotFound("Technician", nil)
		}
		return domain.BulkResult{}, repoError(err, "Ticket")
	}
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketsBulkUpdated, "", caller.ID, s.now(), events.TicketsBulkUpdatedPayload{
		TicketIDs:  ids,
		AssigneeID: technicianID,
		Matched:    result.Matched,
		Modified:   result.Modified,
	}))
	return result, nil
}

// BulkStatusUpdate sets the same status on every listed ticket. Resolved and
// closed timestamps are restamped for every match and no resolution is
// required.
func (s *AdminService) BulkStatusUpdate(ctx context.Context, caller *domain.User, ids []string, status domain.TicketStatus) (domain.BulkResult, error) {
	if err := s.guard(caller, ids); err != nil {
		return domain.BulkResult{}, err
	}
	if status == "" {
		return domain.BulkResult{}, apperrors.NewValidationError("Status is required", nil)
	}
	if !status.Valid() {
		return domain.BulkResult{}, apperrors.NewValidationError("Invalid status", map[string]any{"status": status})
	}

	result, err := s.tickets.BulkStatus(ctx, ids, status, s.now().UTC())
	if err != nil {
		return domain.BulkResult{}, repoError(err, "Ticket")
	}
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventTicketsBulkUpdated, "", caller.ID, s.now(), events.TicketsBulkUpdatedPayload{
		TicketIDs: ids,
		Status:    status,
		Matched:   result.Matched,
		Modified:  result.Modified,
	}))
	return result, nil
}

func (s *AdminService) guard(caller *domain.User, ids []string) error {
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionBulkOperate, policy.Resource{}); err != nil {
		return err
	}
	if len(ids) == 0 {
		return apperrors.NewValidationError("Ticket IDs must be provided as an array", nil)
	}
	for _, id := range ids {
		if err := checkID(id); err != nil {
			return err
		}
	}
	return nil
}
