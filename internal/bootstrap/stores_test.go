package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestNilPoolSharesOneMemoryStore(t *testing.T) {
	repos := NewRepositories(nil)
	ctx := context.Background()

	user := &domain.User{Username: "ivy", Email: "ivy@example.com", Role: domain.RoleCustomer, IsActive: true}
	require.NoError(t, repos.Users.Create(ctx, user))

	ticket := &domain.Ticket{Title: "t", Description: "d", Status: domain.TicketStatusOpen, CreatedBy: user.ID}
	require.NoError(t, repos.Tickets.Create(ctx, ticket))
	assert.Equal(t, "TKT-00001", ticket.TicketNumber)

	require.NoError(t, repos.Comments.Create(ctx, &domain.Comment{TicketID: ticket.ID, AuthorID: user.ID, Text: "hi"}))
	comments, err := repos.Comments.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}
