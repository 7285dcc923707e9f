package service

import (
	"context"
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

const commentPreviewLength = 80

// CommentService manages ticket comment threads.
type CommentService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// CommentDependencies bundles repositories for comment service.
type CommentDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

func NewCommentService(deps CommentDependencies) *CommentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// List returns the thread of a ticket the caller may view, oldest first.
func (s *CommentService) List(ctx context.Context, caller *domain.User, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.visibleTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, repoError(err, "Comment")
	}
	return comments, nil
}

// Add appends a comment authored by the caller.
func (s *CommentService) Add(ctx context.Context, caller *domain.User, ticketID, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	ticket, err := s.visibleTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, apperrors.NewValidationError("Comment text is required", nil)
	}

	comment := &domain.Comment{TicketID: ticket.ID, AuthorID: caller.ID, Text: text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, repoError(err, "Ticket")
	}
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventCommentAdded, ticket.ID, caller.ID, s.now(), events.CommentAddedPayload{
		CommentID:   comment.ID,
		TextPreview: preview(text, commentPreviewLength),
	}))
	return s.reload(ctx, comment.ID)
}

// Update replaces the text of a comment. Only the author or an admin may.
func (s *CommentService) Update(ctx context.Context, caller *domain.User, id, text string) (*domain.Comment, error) {
	comment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionEditComment, policy.Resource{OwnerID: comment.AuthorID}); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("Comment text is required", nil)
	}
	comment.Text = text
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, repoError(err, "Comment")
	}
	return s.reload(ctx, comment.ID)
}

// Delete removes a comment. Only the author or an admin may.
func (s *CommentService) Delete(ctx context.Context, caller *domain.User, id string) error {
	comment, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionDeleteComment, policy.Resource{OwnerID: comment.AuthorID}); err != nil {
		return err
	}
	return repoError(s.comments.Delete(ctx, comment.ID), "Comment")
}

func (s *CommentService) visibleTicket(ctx context.Context, caller *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := checkID(ticketID); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, repoError(err, "Ticket")
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionViewTicket, policy.TicketResource(ticket)); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *CommentService) load(ctx context.Context, id string) (*domain.Comment, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *CommentService) reload(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "Comment")
	}
	return comment, nil
}

func preview(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}
