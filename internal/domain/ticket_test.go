package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTicketNumber(t *testing.T) {
	assert.Equal(t, "TKT-00001", FormatTicketNumber(1))
	assert.Equal(t, "TKT-00042", FormatTicketNumber(42))
	assert.Equal(t, "TKT-99999", FormatTicketNumber(99999))
	assert.Equal(t, "TKT-100000", FormatTicketNumber(100000))
}

func TestApplyStatusStampsResolvedOnce(t *testing.T) {
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ticket := &Ticket{Status: TicketStatusOpen}

	ticket.ApplyStatus(TicketStatusResolved, first)
	require.NotNil(t, ticket.ResolvedAt)
	assert.Equal(t, first, *ticket.ResolvedAt)

	ticket.ApplyStatus(TicketStatusInProgress, first.Add(time.Hour))
	ticket.ApplyStatus(TicketStatusResolved, first.Add(2*time.Hour))
	assert.Equal(t, first, *ticket.ResolvedAt)
	assert.Nil(t, ticket.ClosedAt)
}

func TestApplyStatusStampsClosedOnce(t *testing.T) {
	first := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ticket := &Ticket{Status: TicketStatusResolved}

	ticket.ApplyStatus(TicketStatusClosed, first)
	ticket.ApplyStatus(TicketStatusClosed, first.Add(time.Minute))

	require.NotNil(t, ticket.ClosedAt)
	assert.Equal(t, first, *ticket.ClosedAt)
	assert.Equal(t, TicketStatusClosed, ticket.Status)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, TicketStatus("in-progress").Valid())
	assert.False(t, TicketStatus("IN_PROGRESS").Valid())
	assert.True(t, TicketPriority("urgent").Valid())
	assert.False(t, TicketPriority("critical").Valid())
	assert.True(t, TicketCategory("access").Valid())
	assert.False(t, TicketCategory("").Valid())
	assert.True(t, RoleTechnician.IsStaff())
	assert.False(t, RoleCustomer.IsStaff())
	assert.False(t, Role("root").Valid())
}
