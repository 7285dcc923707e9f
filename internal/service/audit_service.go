package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// AuditService turns domain events into ticket history, metrics and cache
// invalidation.
type AuditService struct {
	dispatcher events.Dispatcher
	history    repository.TicketHistoryRepository
	cache      *cache.Client
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AuditDependencies bundles collaborators for audit service.
type AuditDependencies struct {
	Dispatcher  events.Dispatcher
	HistoryRepo repository.TicketHistoryRepository
	Cache       *cache.Client
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: deps.Dispatcher,
		history:    deps.HistoryRepo,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketCreated)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handleTicketStatusChanged)
	a.dispatcher.Subscribe(events.EventTicketPriorityChanged, a.handleTicketPriorityChanged)
	a.dispatcher.Subscribe(events.EventTicketAssigned, a.handleTicketAssigned)
	a.dispatcher.Subscribe(events.EventTicketUpdated, a.handleTicketUpdated)
	a.dispatcher.Subscribe(events.EventTicketDeleted, a.handleTicketDeleted)
	a.dispatcher.Subscribe(events.EventTicketsBulkUpdated, a.handleTicketsBulkUpdated)
	a.dispatcher.Subscribe(events.EventCommentAdded, a.handleCommentAdded)
	a.dispatcher.Subscribe(events.EventUserUpdated, a.handleUserUpdated)
}

func (a *AuditService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketCreatedPayload)
	a.observe(ctx, event, zap.String("ticket_number", payload.TicketNumber))
	return a.record(ctx, event.TicketID, event.ActorID, domain.ChangeTypeCreated, nil, map[string]any{
		"ticketNumber": payload.TicketNumber,
		"status":       domain.TicketStatusOpen,
		"priority":     payload.Priority,
		"category":     payload.Category,
	})
}

func (a *AuditService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketStatusChangedPayload)
	a.observe(ctx, event, zap.String("old_status", string(payload.OldStatus)), zap.String("new_status", string(payload.NewStatus)))
	newValue := map[string]any{"status": payload.NewStatus}
	if payload.Resolution != "" {
		newValue["resolution"] = payload.Resolution
	}
	return a.record(ctx, event.TicketID, event.ActorID, domain.ChangeTypeStatus,
		map[string]any{"status": payload.OldStatus}, newValue)
}

func (a *AuditService) handleTicketPriorityChanged(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketPriorityChangedPayload)
	a.observe(ctx, event)
	return a.record(ctx, event.TicketID, event.ActorID, domain.ChangeTypePriority,
		map[string]any{"priority": payload.OldPriority},
		map[string]any{"priority": payload.NewPriority})
}

func (a *AuditService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketAssignedPayload)
	a.observe(ctx, event)
	return a.record(ctx, event.TicketID, event.ActorID, domain.ChangeTypeAssignee,
		map[string]any{"assignedTo": payload.OldAssigneeID},
		map[string]any{"assignedTo": payload.NewAssigneeID})
}

// handleTicketUpdated only invalidates. History has no change type for
// content edits.
func (a *AuditService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketUpdatedPayload)
	a.observe(ctx, event, zap.Strings("fields", payload.Fields))
	return nil
}

func (a *AuditService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketDeletedPayload)
	a.observe(ctx, event, zap.String("ticket_number", payload.TicketNumber))
	return nil
}

// handleTicketsBulkUpdated writes one entry per listed ticket. Prior values
// are unknown on the bulk path and stay empty.
func (a *AuditService) handleTicketsBulkUpdated(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketsBulkUpdatedPayload)
	a.observe(ctx, event, zap.Int("matched", payload.Matched), zap.Int("modified", payload.Modified))

	changeType, newValue := domain.ChangeTypeAssignee, map[string]any{"assignedTo": payload.AssigneeID}
	if payload.Status != "" {
		changeType, newValue = domain.ChangeTypeStatus, map[string]any{"status": payload.Status}
	}
	for _, id := range payload.TicketIDs {
		// Unmatched ids have no ticket row to attach to.
		if err := a.record(ctx, id, event.ActorID, changeType, nil, newValue); err != nil {
			a.logger.Debug("skipping bulk history entry", zap.String("ticket_id", id), zap.Error(err))
		}
	}
	return nil
}

func (a *AuditService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.CommentAddedPayload)
	a.metrics.RecordTicketEvent(string(event.Type))
	a.logger.Info("comment added",
		zap.String("ticket_id", event.TicketID),
		zap.String("comment_id", payload.CommentID),
		zap.String("actor_id", event.ActorID))
	return nil
}

// handleUserUpdated drops the workload report, which embeds technician
// names and active flags.
func (a *AuditService) handleUserUpdated(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.UserUpdatedPayload)
	a.logger.Info("user updated",
		zap.String("user_id", payload.UserID),
		zap.String("actor_id", event.ActorID),
		zap.Strings("fields", payload.Fields),
		zap.Bool("deactivated", payload.Deactivated))
	_ = a.cache.Delete(ctx, workloadKey)
	return nil
}

// observe logs the event, counts it and drops cached aggregates.
func (a *AuditService) observe(ctx context.Context, event events.Event, fields ...zap.Field) {
	a.metrics.RecordTicketEvent(string(event.Type))
	a.logger.Info(string(event.Type), append([]zap.Field{
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.ActorID),
	}, fields...)...)
	_ = a.cache.Delete(ctx, StatsCacheKeys...)
}

func (a *AuditService) record(ctx context.Context, ticketID, actorID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) error {
	if a.history == nil || ticketID == "" {
		return nil
	}
	return a.history.Create(ctx, &domain.TicketHistory{
		TicketID:   ticketID,
		ActorID:    actorID,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
}
