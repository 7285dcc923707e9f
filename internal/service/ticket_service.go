package service

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	defaultTicketPageSize = 20
	maxTicketPageSize     = 100
)

const resolutionRequired = "Resolution is required when resolving a ticket"

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
}

// TicketPatch lists the mutable ticket fields. Nil fields are left alone. An
// empty AssignedTo clears the assignee.
type TicketPatch struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Category    *domain.TicketCategory
	Status      *domain.TicketStatus
	Resolution  *string
	AssignedTo  *string
}

func (p TicketPatch) touchesCore() bool {
	return p.Title != nil || p.Description != nil || p.Priority != nil || p.Category != nil
}

func (p TicketPatch) touchesStatus() bool {
	return p.Status != nil || p.Resolution != nil
}

// TicketQuery carries raw listing parameters.
type TicketQuery struct {
	Status     string
	Priority   string
	Category   string
	AssignedTo string
	CreatedBy  string
	Search     string
	SortBy     string
	Sort       string
	Page       int
	Limit      int
}

// TicketPage is one page of a listing.
type TicketPage struct {
	Tickets []domain.Ticket
	Total   int
	Page    int
	Pages   int
	Limit   int
}

// CreateTicket files a ticket on behalf of the caller.
func (s *TicketService) CreateTicket(ctx context.Context, caller *domain.User, input CreateTicketInput) (*domain.Ticket, error) {
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionCreateTicket, policy.Resource{}); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Priority:    input.Priority,
		Category:    input.Category,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   caller.ID,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Category == "" {
		ticket.Category = domain.TicketCategoryOther
	}

	fields := map[string]any{}
	validateTitle(ticket.Title, fields)
	if ticket.Description == "" {
		fields["description"] = "Description is required"
	}
	if !ticket.Priority.Valid() {
		fields["priority"] = "Invalid priority"
	}
	if !ticket.Category.Valid() {
		fields["category"] = "Invalid category"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("Validation error", fields)
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, repoError(err, "Ticket")
	}
	s.publish(ctx, events.New(events.EventTicketCreated, ticket.ID, caller.ID, s.now(), events.TicketCreatedPayload{
		TicketNumber: ticket.TicketNumber,
		Priority:     ticket.Priority,
		Category:     ticket.Category,
		Title:        ticket.Title,
	}))
	return s.reload(ctx, ticket.ID)
}

func validateTitle(title string, fields map[string]any) {
	switch {
	case title == "":
		fields["title"] = "Title is required"
	case utf8.RuneCountInString(title) > domain.MaxTitleLength:
		fields["title"] = "Title cannot exceed 200 characters"
	}
}

// GetTicket returns a ticket the caller may view.
func (s *TicketService) GetTicket(ctx context.Context, caller *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionViewTicket, policy.TicketResource(ticket)); err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTicket applies a typed patch. Each group of fields is gated by its
// own policy action.
func (s *TicketService) UpdateTicket(ctx context.Context, caller *domain.User, id string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	subject := policy.SubjectOf(caller)
	res := policy.TicketResource(ticket)

	if err := policy.Authorize(subject, policy.ActionViewTicket, res); err != nil {
		return nil, err
	}
	if patch.touchesCore() {
		if err := policy.Authorize(subject, policy.ActionEditTicketCore, res); err != nil {
			return nil, err
		}
	}
	if patch.touchesStatus() {
		if err := policy.Authorize(subject, policy.ActionChangeStatus, res); err != nil {
			return nil, err
		}
	}
	if patch.AssignedTo != nil {
		target := res
		target.TargetID = *patch.AssignedTo
		if err := policy.Authorize(subject, policy.ActionChangeAssignee, target); err != nil {
			return nil, err
		}
		if *patch.AssignedTo != "" {
			if err := s.checkAssignee(ctx, *patch.AssignedTo); err != nil {
				return nil, err
			}
		}
	}

	return s.apply(ctx, caller, ticket, patch)
}

// UpdateStatus changes status and resolution through the same path as
// UpdateTicket.
func (s *TicketService) UpdateStatus(ctx context.Context, caller *domain.User, id string, status domain.TicketStatus, resolution *string) (*domain.Ticket, error) {
	if status == "" {
		return nil, apperrors.NewValidationError("Status is required", nil)
	}
	return s.UpdateTicket(ctx, caller, id, TicketPatch{Status: &status, Resolution: resolution})
}

// AssignTicket hands the ticket to technicianID. Open tickets move to
// in-progress.
func (s *TicketService) AssignTicket(ctx context.Context, caller *domain.User, id, technicianID string) (*domain.Ticket, error) {
	technicianID = strings.TrimSpace(technicianID)
	if technicianID == "" {
		return nil, apperrors.NewValidationError("Technician ID is required", nil)
	}
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	res := policy.TicketResource(ticket)
	res.TargetID = technicianID
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionChangeAssignee, res); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, technicianID); err != nil {
		return nil, err
	}

	patch := TicketPatch{AssignedTo: &technicianID}
	if ticket.Status == domain.TicketStatusOpen {
		next := domain.TicketStatusInProgress
		patch.Status = &next
	}
	return s.apply(ctx, caller, ticket, patch)
}

func (s *TicketService) checkAssignee(ctx context.Context, userID string) error {
	if err := checkID(userID); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return repoError(err, "Technician")
	}
	if !user.IsActive || !user.Role.IsStaff() {
		return apperrors.NewValidationError("Assignee must be an active technician or admin", nil)
	}
	return nil
}

// apply validates and persists an already authorized patch.
func (s *TicketService) apply(ctx context.Context, caller *domain.User, ticket *domain.Ticket, patch TicketPatch) (*domain.Ticket, error) {
	before := *ticket
	fields := map[string]any{}

	if patch.Title != nil {
		ticket.Title = strings.TrimSpace(*patch.Title)
		validateTitle(ticket.Title, fields)
	}
	if patch.Description != nil {
		ticket.Description = strings.TrimSpace(*patch.Description)
		if ticket.Description == "" {
			fields["description"] = "Description is required"
		}
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			fields["priority"] = "Invalid priority"
		}
		ticket.Priority = *patch.Priority
	}
	if patch.Category != nil {
		if !patch.Category.Valid() {
			fields["category"] = "Invalid category"
		}
		ticket.Category = *patch.Category
	}
	if patch.Status != nil && !patch.Status.Valid() {
		fields["status"] = "Invalid status"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("Validation error", fields)
	}

	if patch.Resolution != nil && strings.TrimSpace(*patch.Resolution) != "" {
		ticket.Resolution = strings.TrimSpace(*patch.Resolution)
	}
	if patch.Status != nil {
		if *patch.Status == domain.TicketStatusResolved && ticket.Resolution == "" {
			return nil, apperrors.NewValidationError(resolutionRequired, nil)
		}
		ticket.ApplyStatus(*patch.Status, s.now().UTC())
	}
	if patch.AssignedTo != nil {
		if *patch.AssignedTo == "" {
			ticket.AssignedTo = nil
		} else {
			assignee := strings.ToLower(*patch.AssignedTo)
			ticket.AssignedTo = &assignee
		}
	}
	ticket.Creator = nil
	ticket.Assignee = nil

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, repoError(err, "Ticket")
	}
	s.publishChanges(ctx, caller.ID, &before, ticket)
	return s.reload(ctx, ticket.ID)
}

func (s *TicketService) publishChanges(ctx context.Context, actorID string, before, after *domain.Ticket) {
	at := s.now()
	var fields []string
	if before.Title != after.Title {
		fields = append(fields, "title")
	}
	if before.Description != after.Description {
		fields = append(fields, "description")
	}
	if before.Category != after.Category {
		fields = append(fields, "category")
	}
	if len(fields) > 0 {
		s.publish(ctx, events.New(events.EventTicketUpdated, after.ID, actorID, at, events.TicketUpdatedPayload{Fields: fields}))
	}
	if before.Status != after.Status || before.Resolution != after.Resolution {
		s.publish(ctx, events.New(events.EventTicketStatusChanged, after.ID, actorID, at, events.TicketStatusChangedPayload{
			OldStatus:  before.Status,
			NewStatus:  after.Status,
			Resolution: after.Resolution,
		}))
	}
	if before.Priority != after.Priority {
		s.publish(ctx, events.New(events.EventTicketPriorityChanged, after.ID, actorID, at, events.TicketPriorityChangedPayload{
			OldPriority: before.Priority,
			NewPriority: after.Priority,
		}))
	}
	if !sameAssignee(before.AssignedTo, after.AssignedTo) {
		s.publish(ctx, events.New(events.EventTicketAssigned, after.ID, actorID, at, events.TicketAssignedPayload{
			OldAssigneeID: before.AssignedTo,
			NewAssigneeID: after.AssignedTo,
		}))
	}
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DeleteTicket removes the ticket with its comments and history.
func (s *TicketService) DeleteTicket(ctx context.Context, caller *domain.User, id string) error {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionDeleteTicket, policy.TicketResource(ticket)); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return repoError(err, "Ticket")
	}
	s.publish(ctx, events.New(events.EventTicketDeleted, ticket.ID, caller.ID, s.now(), events.TicketDeletedPayload{
		TicketNumber: ticket.TicketNumber,
	}))
	return nil
}

// ListTickets returns a filtered page. Customers only ever see their own
// tickets.
func (s *TicketService) ListTickets(ctx context.Context, caller *domain.User, query TicketQuery) (*TicketPage, error) {
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionListTickets, policy.Resource{}); err != nil {
		return nil, err
	}
	filter, err := buildTicketFilter(query)
	if err != nil {
		return nil, err
	}
	page, limit := normalizePage(query.Page, query.Limit, defaultTicketPageSize, maxTicketPageSize)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit
	return s.listPage(ctx, caller, filter, page, limit)
}

// ListMyTickets lists tickets the caller created.
func (s *TicketService) ListMyTickets(ctx context.Context, caller *domain.User, query TicketQuery) (*TicketPage, error) {
	query.CreatedBy = caller.ID
	return s.ListTickets(ctx, caller, query)
}

// ListAssigned lists tickets assigned to the caller, filtered by status and
// priority only.
func (s *TicketService) ListAssigned(ctx context.Context, caller *domain.User, query TicketQuery) (*TicketPage, error) {
	narrowed := TicketQuery{
		Status:     query.Status,
		Priority:   query.Priority,
		SortBy:     query.SortBy,
		Sort:       query.Sort,
		Page:       query.Page,
		Limit:      query.Limit,
		AssignedTo: caller.ID,
	}
	return s.ListTickets(ctx, caller, narrowed)
}

// ListUnassigned returns every ticket without an assignee, oldest first.
func (s *TicketService) ListUnassigned(ctx context.Context, caller *domain.User, priority, category string) ([]domain.Ticket, error) {
	if !caller.Role.IsStaff() {
		return nil, apperrors.NewForbidden("Insufficient permissions")
	}
	filter, err := buildTicketFilter(TicketQuery{Priority: priority, Category: category})
	if err != nil {
		return nil, err
	}
	filter.Unassigned = true
	filter.Sort = repository.TicketSort{Field: repository.SortCreatedAt}
	scopeTicketFilter(caller, &filter)

	tickets, _, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "Ticket")
	}
	return tickets, nil
}

// History returns the audit trail of a ticket.
func (s *TicketService) History(ctx context.Context, caller *domain.User, id string) ([]domain.TicketHistory, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionViewHistory, policy.TicketResource(ticket)); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, repoError(err, "Ticket")
	}
	return entries, nil
}

func (s *TicketService) listPage(ctx context.Context, caller *domain.User, filter repository.TicketFilter, page, limit int) (*TicketPage, error) {
	scopeTicketFilter(caller, &filter)
	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "Ticket")
	}
	return &TicketPage{
		Tickets: tickets,
		Total:   total,
		Page:    page,
		Pages:   int(math.Ceil(float64(total) / float64(limit))),
		Limit:   limit,
	}, nil
}

// scopeTicketFilter is the one place listing visibility is decided.
func scopeTicketFilter(caller *domain.User, filter *repository.TicketFilter) {
	if caller.Role == domain.RoleCustomer {
		filter.CreatedBy = caller.ID
	}
}

func buildTicketFilter(query TicketQuery) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{Search: strings.TrimSpace(query.Search)}

	for _, v := range splitList(query.Status) {
		status := domain.TicketStatus(v)
		if !status.Valid() {
			return filter, apperrors.NewValidationError("Invalid status filter", map[string]any{"status": v})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, v := range splitList(query.Priority) {
		priority := domain.TicketPriority(v)
		if !priority.Valid() {
			return filter, apperrors.NewValidationError("Invalid priority filter", map[string]any{"priority": v})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	for _, v := range splitList(query.Category) {
		category := domain.TicketCategory(v)
		if !category.Valid() {
			return filter, apperrors.NewValidationError("Invalid category filter", map[string]any{"category": v})
		}
		filter.Categories = append(filter.Categories, category)
	}

	switch assignee := strings.TrimSpace(query.AssignedTo); assignee {
	case "":
	case "unassigned", "null":
		filter.Unassigned = true
	default:
		if err := checkID(assignee); err != nil {
			return filter, err
		}
		filter.AssignedTo = strings.ToLower(assignee)
	}
	if creator := strings.TrimSpace(query.CreatedBy); creator != "" {
		if err := checkID(creator); err != nil {
			return filter, err
		}
		filter.CreatedBy = strings.ToLower(creator)
	}

	sort, err := parseTicketSort(query.SortBy, query.Sort)
	if err != nil {
		return filter, err
	}
	filter.Sort = sort
	return filter, nil
}

// parseTicketSort accepts "field:asc|desc" or "-field".
func parseTicketSort(sortBy, sort string) (repository.TicketSort, error) {
	var name string
	var desc bool
	switch {
	case sortBy != "":
		field, dir, _ := strings.Cut(sortBy, ":")
		name, desc = field, strings.EqualFold(dir, "desc")
	case sort != "":
		name, desc = strings.TrimPrefix(sort, "-"), strings.HasPrefix(sort, "-")
	default:
		return repository.DefaultTicketSort, nil
	}
	field, ok := repository.ParseSortField(strings.TrimSpace(name))
	if !ok {
		return repository.TicketSort{}, apperrors.NewValidationError("Invalid sort field", map[string]any{"sort": name})
	}
	return repository.TicketSort{Field: field, Desc: desc}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizePage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return page, limit
}

func (s *TicketService) load(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "Ticket")
	}
	return ticket, nil
}

func (s *TicketService) reload(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "Ticket")
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, event)
}
