package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// CommentsHandler exposes ticket comment endpoints.
type CommentsHandler struct {
	comments *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(commentService *service.CommentService) *CommentsHandler {
	return &CommentsHandler{comments: commentService}
}

// List handles GET /api/tickets/:ticketId/comments.
func (h *CommentsHandler) List(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	comments, err := h.comments.List(c.UserContext(), caller, c.Params("ticketId"))
	if err != nil {
		return err
	}
	return ok(c, "Comments retrieved successfully", dto.NewCommentResponses(comments))
}

// Add handles POST /api/tickets/:ticketId/comments.
func (h *CommentsHandler) Add(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Add(c.UserContext(), caller, c.Params("ticketId"), req.Text)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Comment added successfully", dto.NewCommentResponse(comment))
}

// Update handles PATCH /api/comments/:id.
func (h *CommentsHandler) Update(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Update(c.UserContext(), caller, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return ok(c, "Comment updated successfully", dto.NewCommentResponse(comment))
}

// Delete handles DELETE /api/comments/:id.
func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return ok(c, "Comment deleted successfully", nil)
}
