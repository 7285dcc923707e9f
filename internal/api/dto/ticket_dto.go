package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    string `json:"category" validate:"omitempty,oneof=hardware software network access other"`
}

// UpdateTicketRequest payload. An empty assignedTo clears the assignee.
type UpdateTicketRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    *string `json:"category" validate:"omitempty,oneof=hardware software network access other"`
	Status      *string `json:"status" validate:"omitempty,oneof=open in-progress resolved closed"`
	Resolution  *string `json:"resolution"`
	AssignedTo  *string `json:"assignedTo"`
}

// UpdateStatusRequest payload for the status shortcut.
type UpdateStatusRequest struct {
	Status     string  `json:"status" validate:"required,oneof=open in-progress resolved closed"`
	Resolution *string `json:"resolution"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	TechnicianID string `json:"technicianId" validate:"required"`
}

// TicketResponse is the full ticket view with embedded users.
type TicketResponse struct {
	ID           string                `json:"id"`
	TicketNumber string                `json:"ticketNumber"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	Category     domain.TicketCategory `json:"category"`
	CreatedBy    *UserRefResponse      `json:"createdBy"`
	AssignedTo   *UserRefResponse      `json:"assignedTo"`
	Resolution   string                `json:"resolution,omitempty"`
	ResolvedAt   *time.Time            `json:"resolvedAt"`
	ClosedAt     *time.Time            `json:"closedAt"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// TicketEnvelope nests a single ticket under "ticket".
type TicketEnvelope struct {
	Ticket TicketResponse `json:"ticket"`
}

// Pagination describes a page of a listing.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

// TicketListResponse is one page of tickets.
type TicketListResponse struct {
	Tickets    []TicketResponse `json:"tickets"`
	Pagination Pagination       `json:"pagination"`
}

// UnassignedResponse lists the assignment queue.
type UnassignedResponse struct {
	Tickets []TicketResponse `json:"tickets"`
	Count   int              `json:"count"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	ChangeType domain.TicketChangeType `json:"changeType"`
	ActorID    string                  `json:"actorId,omitempty"`
	OldValue   map[string]any          `json:"oldValue"`
	NewValue   map[string]any          `json:"newValue"`
	CreatedAt  time.Time               `json:"createdAt"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	assignee := ""
	if t.AssignedTo != nil {
		assignee = *t.AssignedTo
	}
	return TicketResponse{
		ID:           t.ID,
		TicketNumber: t.TicketNumber,
		Title:        t.Title,
		Description:  t.Description,
		Priority:     t.Priority,
		Status:       t.Status,
		Category:     t.Category,
		CreatedBy:    newUserRef(t.Creator, t.CreatedBy),
		AssignedTo:   newUserRef(t.Assignee, assignee),
		Resolution:   t.Resolution,
		ResolvedAt:   t.ResolvedAt,
		ClosedAt:     t.ClosedAt,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// NewHistoryResponses maps audit entries in order.
func NewHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TicketHistoryResponse{
			ID:         e.ID,
			ChangeType: e.ChangeType,
			ActorID:    e.ActorID,
			OldValue:   e.OldValue,
			NewValue:   e.NewValue,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
