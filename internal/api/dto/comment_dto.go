package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CommentRequest payload for adding or editing a comment.
type CommentRequest struct {
	Text string `json:"text"`
}

// CommentResponse embeds the author.
type CommentResponse struct {
	ID        string           `json:"id"`
	TicketID  string           `json:"ticketId"`
	Text      string           `json:"text"`
	User      *UserRefResponse `json:"user"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		TicketID:  c.TicketID,
		Text:      c.Text,
		User:      newUserRef(c.Author, c.AuthorID),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func NewCommentResponses(comments []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, NewCommentResponse(&comments[i]))
	}
	return out
}
