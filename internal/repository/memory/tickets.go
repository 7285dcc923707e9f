package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var _ repository.TicketRepository = (*ticketStore)(nil)

type ticketStore struct {
	*Store
}

func cloneTicket(t *domain.Ticket) domain.Ticket {
	c := *t
	c.AssignedTo = cloneString(t.AssignedTo)
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	c.Creator = nil
	c.Assignee = nil
	return c
}

// view must be called with the lock held.
func (s *ticketStore) view(rec *ticketRecord) domain.Ticket {
	t := cloneTicket(&rec.ticket)
	t.Creator = s.userRef(t.CreatedBy)
	if t.AssignedTo != nil {
		t.Assignee = s.userRef(*t.AssignedTo)
	}
	return t
}

// checkRefs must be called with the lock held. It canonicalizes the user
// references it checks.
func (s *ticketStore) checkRefs(t *domain.Ticket) error {
	t.CreatedBy = key(t.CreatedBy)
	if t.AssignedTo != nil {
		assignee := key(*t.AssignedTo)
		t.AssignedTo = &assignee
	}
	if _, ok := s.users[t.CreatedBy]; !ok {
		return fmt.Errorf("%w: tickets_created_by_fkey", repository.ErrInvalidReference)
	}
	if t.AssignedTo != nil {
		if _, ok := s.users[*t.AssignedTo]; !ok {
			return fmt.Errorf("%w: tickets_assigned_to_fkey", repository.ErrInvalidReference)
		}
	}
	return nil
}

func (s *ticketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefs(ticket); err != nil {
		return err
	}
	s.seq++
	now := s.timestamp()
	ticket.ID = newID()
	ticket.TicketNumber = domain.FormatTicketNumber(s.seq)
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	s.tickets[ticket.ID] = &ticketRecord{ticket: cloneTicket(ticket), seq: s.seq}
	return nil
}

func (s *ticketStore) Update(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket.ID = key(ticket.ID)
	rec, ok := s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := s.checkRefs(ticket); err != nil {
		return err
	}
	next := cloneTicket(ticket)
	next.TicketNumber = rec.ticket.TicketNumber
	next.CreatedBy = rec.ticket.CreatedBy
	next.CreatedAt = rec.ticket.CreatedAt
	next.UpdatedAt = s.timestamp()
	rec.ticket = next
	ticket.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *ticketStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = key(id)
	if _, ok := s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.tickets, id)
	delete(s.history, id)
	for cid, rec := range s.comments {
		if rec.comment.TicketID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

func (s *ticketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tickets[key(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t := s.view(rec)
	return &t, nil
}

// matching must be called with the lock held.
func (s *ticketStore) matching(filter repository.TicketFilter) []*ticketRecord {
	var out []*ticketRecord
	for _, rec := range s.tickets {
		if filter.Matches(&rec.ticket) {
			out = append(out, rec)
		}
	}
	return out
}

func (s *ticketStore) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.matching(filter)
	seqs := make(map[string]int64, len(recs))
	tickets := make([]domain.Ticket, 0, len(recs))
	for _, rec := range recs {
		seqs[rec.ticket.ID] = rec.seq
		tickets = append(tickets, s.view(rec))
	}
	repository.SortTickets(tickets, filter.Sort, func(t *domain.Ticket) int64 { return seqs[t.ID] })
	return page(tickets, filter.Limit, filter.Offset), len(tickets), nil
}

func (s *ticketStore) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.matching(filter)), nil
}

func (s *ticketStore) GroupCount(_ context.Context, field repository.TicketGroupField) ([]domain.GroupCount, error) {
	var groupOf func(*domain.Ticket) string
	switch field {
	case repository.GroupByCategory:
		groupOf = func(t *domain.Ticket) string { return string(t.Category) }
	case repository.GroupByPriority:
		groupOf = func(t *domain.Ticket) string { return string(t.Priority) }
	default:
		return nil, fmt.Errorf("unsupported group field %q", field)
	}

	s.mu.RLock()
	counts := make(map[string]int)
	for _, rec := range s.tickets {
		counts[groupOf(&rec.ticket)]++
	}
	s.mu.RUnlock()

	result := make([]domain.GroupCount, 0, len(counts))
	for k, n := range counts {
		result = append(result, domain.GroupCount{Key: k, Count: n})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (s *ticketStore) Workload(_ context.Context) ([]domain.WorkloadEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, rec := range s.tickets {
		t := rec.ticket
		if t.AssignedTo == nil {
			continue
		}
		if t.Status != domain.TicketStatusOpen && t.Status != domain.TicketStatusInProgress {
			continue
		}
		counts[*t.AssignedTo]++
	}

	result := make([]domain.WorkloadEntry, 0, len(counts))
	for id, n := range counts {
		u, ok := s.users[id]
		if !ok {
			continue
		}
		result = append(result, domain.WorkloadEntry{TechnicianID: id, TechnicianName: u.FullName, TicketCount: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TicketCount != result[j].TicketCount {
			return result[i].TicketCount > result[j].TicketCount
		}
		return result[i].TechnicianName < result[j].TechnicianName
	})
	return result, nil
}

func (s *ticketStore) Performance(_ context.Context, filter repository.TicketFilter) ([]domain.PerformanceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type bucket struct {
		assignee *string
		sumMs    float64
		resolved int
		total    int
	}
	buckets := make(map[string]*bucket)
	for _, rec := range s.matching(filter) {
		t := rec.ticket
		key := ""
		if t.AssignedTo != nil {
			key = *t.AssignedTo
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{assignee: cloneString(t.AssignedTo)}
			buckets[key] = b
		}
		b.total++
		if t.ResolvedAt != nil {
			b.resolved++
			b.sumMs += float64(t.ResolvedAt.Sub(t.CreatedAt).Milliseconds())
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]domain.PerformanceRow, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		row := domain.PerformanceRow{AssignedTo: b.assignee, ResolvedCount: b.resolved, TicketCount: b.total}
		if b.resolved > 0 {
			avg := b.sumMs / float64(b.resolved)
			row.AvgResolutionMs = &avg
		}
		result = append(result, row)
	}
	return result, nil
}

func (s *ticketStore) BulkAssign(_ context.Context, ids []string, assigneeID string) (domain.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assigneeID = key(assigneeID)
	if _, ok := s.users[assigneeID]; !ok {
		return domain.BulkResult{}, fmt.Errorf("%w: tickets_assigned_to_fkey", repository.ErrInvalidReference)
	}
	return s.bulk(ids, func(t *domain.Ticket) bool {
		changed := !t.IsAssignedTo(assigneeID)
		id := assigneeID
		t.AssignedTo = &id
		return changed
	}), nil
}

func (s *ticketStore) BulkStatus(_ context.Context, ids []string, status domain.TicketStatus, now time.Time) (domain.BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bulk(ids, func(t *domain.Ticket) bool {
		changed := t.Status != status
		t.Status = status
		switch status {
		case domain.TicketStatusResolved:
			stamp := now
			t.ResolvedAt = &stamp
			changed = true
		case domain.TicketStatusClosed:
			stamp := now
			t.ClosedAt = &stamp
			changed = true
		}
		return changed
	}), nil
}

// bulk must be called with the write lock held. Duplicate ids count once.
func (s *ticketStore) bulk(ids []string, apply func(*domain.Ticket) bool) domain.BulkResult {
	var result domain.BulkResult
	seen := make(map[string]bool, len(ids))
	now := s.timestamp()
	for _, id := range ids {
		id = key(id)
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, ok := s.tickets[id]
		if !ok {
			continue
		}
		result.Matched++
		if apply(&rec.ticket) {
			result.Modified++
		}
		rec.ticket.UpdatedAt = now
	}
	return result
}
