package memory

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newStore() *Store {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	return NewStore(WithClock(clock.Now))
}

func seedUser(t *testing.T, s *Store, username string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@example.com", Role: role, FullName: username + " name", IsActive: true}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func seedTicket(t *testing.T, s *Store, creator string) *domain.Ticket {
	t.Helper()
	tk := &domain.Ticket{
		Title:       "Broken VPN",
		Description: "cannot connect",
		Priority:    domain.TicketPriorityMedium,
		Status:      domain.TicketStatusOpen,
		Category:    domain.TicketCategoryNetwork,
		CreatedBy:   creator,
	}
	require.NoError(t, s.Tickets().Create(context.Background(), tk))
	return tk
}

func TestUserUniqueness(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	seedUser(t, s, "alice", domain.RoleCustomer)

	err := s.Users().Create(ctx, &domain.User{Username: "alice", Email: "other@example.com"})
	dup, ok := repository.IsDuplicate(err)
	require.True(t, ok)
	assert.Equal(t, "username", dup.Field)

	err = s.Users().Create(ctx, &domain.User{Username: "bob", Email: "ALICE@example.com"})
	dup, ok = repository.IsDuplicate(err)
	require.True(t, ok)
	assert.Equal(t, "email", dup.Field)

	found, err := s.Users().GetByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Username)
}

func TestUserListFiltersAndPages(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	seedUser(t, s, "cust1", domain.RoleCustomer)
	seedUser(t, s, "tech1", domain.RoleTechnician)
	seedUser(t, s, "tech2", domain.RoleTechnician)

	users, total, err := s.Users().List(ctx, repository.UserFilter{Role: domain.RoleTechnician, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, users, 1)
	assert.Equal(t, "tech2", users[0].Username, "newest first")

	users, total, err = s.Users().List(ctx, repository.UserFilter{Search: "CUST"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "cust1", users[0].Username)
}

func TestTicketNumbersIncrease(t *testing.T) {
	s := newStore()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)

	first := seedTicket(t, s, owner.ID)
	second := seedTicket(t, s, owner.ID)

	assert.Equal(t, "TKT-00001", first.TicketNumber)
	assert.Equal(t, "TKT-00002", second.TicketNumber)
}

func TestTicketNumbersUniqueUnderConcurrency(t *testing.T) {
	s := newStore()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)

	const n = 50
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk := &domain.Ticket{Title: "x", Description: "y", Status: domain.TicketStatusOpen, CreatedBy: owner.ID}
			if err := s.Tickets().Create(context.Background(), tk); err == nil {
				numbers <- tk.TicketNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "duplicate %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
}

func TestTicketReadsJoinUsers(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)
	tech := seedUser(t, s, "tom", domain.RoleTechnician)
	tk := seedTicket(t, s, owner.ID)

	tk.AssignedTo = &tech.ID
	require.NoError(t, s.Tickets().Update(ctx, tk))

	got, err := s.Tickets().GetByID(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Creator)
	require.NotNil(t, got.Assignee)
	assert.Equal(t, "alice name", got.Creator.FullName)
	assert.Equal(t, "tom", got.Assignee.Username)
}

func TestTicketUpdateRejectsUnknownAssignee(t *testing.T) {
	s := newStore()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)
	tk := seedTicket(t, s, owner.ID)

	ghost := "00000000-0000-0000-0000-000000000000"
	tk.AssignedTo = &ghost
	assert.ErrorIs(t, s.Tickets().Update(context.Background(), tk), repository.ErrInvalidReference)
}

func TestLookupsIgnoreIDCase(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)
	tech := seedUser(t, s, "bob", domain.RoleTechnician)
	tk := seedTicket(t, s, strings.ToUpper(owner.ID))
	assert.Equal(t, owner.ID, tk.CreatedBy)

	u, err := s.Users().GetByID(ctx, strings.ToUpper(owner.ID))
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	got, err := s.Tickets().GetByID(ctx, strings.ToUpper(tk.ID))
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)

	assignee := strings.ToUpper(tech.ID)
	got.AssignedTo = &assignee
	got.ID = strings.ToUpper(got.ID)
	require.NoError(t, s.Tickets().Update(ctx, got))
	got, err = s.Tickets().GetByID(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, tech.ID, *got.AssignedTo)

	c := &domain.Comment{TicketID: strings.ToUpper(tk.ID), AuthorID: strings.ToUpper(owner.ID), Text: "hello"}
	require.NoError(t, s.Comments().Create(ctx, c))
	_, err = s.Comments().GetByID(ctx, strings.ToUpper(c.ID))
	require.NoError(t, err)
	comments, err := s.Comments().ListByTicket(ctx, strings.ToUpper(tk.ID))
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	require.NoError(t, s.History().Create(ctx, &domain.TicketHistory{TicketID: strings.ToUpper(tk.ID), ChangeType: domain.ChangeTypeCreated}))
	entries, err := s.History().ListByTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, s.Comments().Delete(ctx, strings.ToUpper(c.ID)))
	require.NoError(t, s.Tickets().Delete(ctx, strings.ToUpper(tk.ID)))
	_, err = s.Tickets().GetByID(ctx, tk.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)
	tk := seedTicket(t, s, owner.ID)

	c := &domain.Comment{TicketID: tk.ID, AuthorID: owner.ID, Text: "hello"}
	require.NoError(t, s.Comments().Create(ctx, c))
	require.NoError(t, s.History().Create(ctx, &domain.TicketHistory{TicketID: tk.ID, ChangeType: domain.ChangeTypeCreated}))

	require.NoError(t, s.Tickets().Delete(ctx, tk.ID))

	_, err := s.Comments().GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	entries, err := s.History().ListByTicket(ctx, tk.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.ErrorIs(t, s.Tickets().Delete(ctx, tk.ID), repository.ErrNotFound)
}

func TestCommentsOldestFirst(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)
	tk := seedTicket(t, s, owner.ID)

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, s.Comments().Create(ctx, &domain.Comment{TicketID: tk.ID, AuthorID: owner.ID, Text: text}))
	}

	comments, err := s.Comments().ListByTicket(ctx, tk.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "one", comments[0].Text)
	assert.Equal(t, "three", comments[2].Text)
	assert.Equal(t, "alice@example.com", comments[0].Author.Email)
}

func TestBulkAssignCountsMatchedAndModified(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)
	tech := seedUser(t, s, "tom", domain.RoleTechnician)
	a := seedTicket(t, s, owner.ID)
	b := seedTicket(t, s, owner.ID)
	a.AssignedTo = &tech.ID
	require.NoError(t, s.Tickets().Update(ctx, a))

	res, err := s.Tickets().BulkAssign(ctx, []string{a.ID, b.ID, "11111111-1111-1111-1111-111111111111"}, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Matched: 2, Modified: 1}, res)

	got, err := s.Tickets().GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, got.Status)
	assert.True(t, got.IsAssignedTo(tech.ID))
}

func TestBulkStatusRestampsResolved(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)
	tk := seedTicket(t, s, owner.ID)

	first := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	_, err := s.Tickets().BulkStatus(ctx, []string{tk.ID}, domain.TicketStatusResolved, first)
	require.NoError(t, err)
	res, err := s.Tickets().BulkStatus(ctx, []string{tk.ID}, domain.TicketStatusResolved, second)
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Matched: 1, Modified: 1}, res)

	got, err := s.Tickets().GetByID(ctx, tk.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, second, *got.ResolvedAt)
}

func TestWorkloadAndPerformance(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)
	tech := seedUser(t, s, "tom", domain.RoleTechnician)

	open := seedTicket(t, s, owner.ID)
	open.AssignedTo = &tech.ID
	require.NoError(t, s.Tickets().Update(ctx, open))

	done := seedTicket(t, s, owner.ID)
	done.AssignedTo = &tech.ID
	resolvedAt := done.CreatedAt.Add(2 * time.Hour)
	done.Status = domain.TicketStatusResolved
	done.ResolvedAt = &resolvedAt
	require.NoError(t, s.Tickets().Update(ctx, done))

	seedTicket(t, s, owner.ID)

	workload, err := s.Tickets().Workload(ctx)
	require.NoError(t, err)
	require.Len(t, workload, 1)
	assert.Equal(t, domain.WorkloadEntry{TechnicianID: tech.ID, TechnicianName: "tom name", TicketCount: 1}, workload[0])

	rows, err := s.Tickets().Performance(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Nil(t, rows[0].AssignedTo)
	assert.Nil(t, rows[0].AvgResolutionMs)
	require.NotNil(t, rows[1].AvgResolutionMs)
	assert.InDelta(t, float64(2*time.Hour/time.Millisecond), *rows[1].AvgResolutionMs, 0.5)
	assert.Equal(t, 1, rows[1].ResolvedCount)
	assert.Equal(t, 2, rows[1].TicketCount)
}

func TestGroupCount(t *testing.T) {
	s := newStore()
	owner := seedUser(t, s, "alice", domain.RoleCustomer)
	seedTicket(t, s, owner.ID)
	seedTicket(t, s, owner.ID)

	counts, err := s.Tickets().GroupCount(context.Background(), repository.GroupByCategory)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupCount{{Key: "network", Count: 2}}, counts)
}
