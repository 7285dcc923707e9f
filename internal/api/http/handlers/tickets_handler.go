package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketsHandler manages ticket endpoints for every role.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), caller, service.CreateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
		Category:    domain.TicketCategory(req.Category),
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Ticket created successfully", dto.TicketEnvelope{Ticket: dto.NewTicketResponse(ticket)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListTickets(c.UserContext(), caller, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return ok(c, "Tickets retrieved", ticketList(page))
}

// MyTickets GET /api/tickets/my-tickets.
func (h *TicketsHandler) MyTickets(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListMyTickets(c.UserContext(), caller, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return ok(c, "Tickets retrieved", ticketList(page))
}

// AssignedTickets GET /api/tickets/assigned.
func (h *TicketsHandler) AssignedTickets(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListAssigned(c.UserContext(), caller, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return ok(c, "Assigned tickets retrieved", ticketList(page))
}

// UnassignedTickets GET /api/tickets/unassigned.
func (h *TicketsHandler) UnassignedTickets(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListUnassigned(c.UserContext(), caller, c.Query("priority"), c.Query("category"))
	if err != nil {
		return err
	}
	return ok(c, "Unassigned tickets retrieved", dto.UnassignedResponse{
		Tickets: dto.NewTicketResponses(tickets),
		Count:   len(tickets),
	})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Ticket retrieved", dto.TicketEnvelope{Ticket: dto.NewTicketResponse(ticket)})
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ticket, err := h.service.UpdateTicket(c.UserContext(), caller, c.Params("id"), service.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
		Priority:    typed[domain.TicketPriority](req.Priority),
		Category:    typed[domain.TicketCategory](req.Category),
		Status:      typed[domain.TicketStatus](req.Status),
		Resolution:  req.Resolution,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return ok(c, "Ticket updated successfully", dto.TicketEnvelope{Ticket: dto.NewTicketResponse(ticket)})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return ok(c, "Ticket deleted successfully", nil)
}

// AssignTicket PATCH /api/tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.AssignTicket(c.UserContext(), caller, c.Params("id"), req.TechnicianID)
	if err != nil {
		return err
	}
	return ok(c, "Ticket assigned successfully", dto.TicketEnvelope{Ticket: dto.NewTicketResponse(ticket)})
}

// UpdateStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), caller, c.Params("id"), domain.TicketStatus(req.Status), req.Resolution)
	if err != nil {
		return err
	}
	return ok(c, "Status updated successfully", dto.TicketEnvelope{Ticket: dto.NewTicketResponse(ticket)})
}

// History GET /api/tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "Ticket history retrieved", dto.NewHistoryResponses(entries))
}

func parseTicketQuery(c *fiber.Ctx) service.TicketQuery {
	return service.TicketQuery{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		Category:   c.Query("category"),
		AssignedTo: c.Query("assignedTo"),
		CreatedBy:  c.Query("createdBy"),
		Search:     c.Query("search"),
		SortBy:     c.Query("sortBy"),
		Sort:       c.Query("sort"),
		Page:       parseInt(c.Query("page"), 0),
		Limit:      parseInt(c.Query("limit"), 0),
	}
}

func ticketList(page *service.TicketPage) dto.TicketListResponse {
	return dto.TicketListResponse{
		Tickets: dto.NewTicketResponses(page.Tickets),
		Pagination: dto.Pagination{
			Total: page.Total,
			Page:  page.Page,
			Pages: page.Pages,
			Limit: page.Limit,
		},
	}
}

func typed[T ~string](s *string) *T {
	if s == nil {
		return nil
	}
	v := T(*s)
	return &v
}
