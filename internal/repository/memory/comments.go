package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var (
	_ repository.CommentRepository       = (*commentStore)(nil)
	_ repository.TicketHistoryRepository = (*historyStore)(nil)
)

type commentStore struct {
	*Store
}

type commentRecord struct {
	comment domain.Comment
	order   int64
}

func (s *commentStore) Create(_ context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment.TicketID = key(comment.TicketID)
	comment.AuthorID = key(comment.AuthorID)
	if _, ok := s.tickets[comment.TicketID]; !ok {
		return fmt.Errorf("%w: comments_ticket_id_fkey", repository.ErrInvalidReference)
	}
	now := s.timestamp()
	comment.ID = newID()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	s.order++
	stored := *comment
	stored.Author = nil
	s.comments[comment.ID] = &commentRecord{comment: stored, order: s.order}
	return nil
}

func (s *commentStore) Update(_ context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.comments[key(comment.ID)]
	if !ok {
		return repository.ErrNotFound
	}
	stored := &rec.comment
	stored.Text = comment.Text
	stored.UpdatedAt = s.timestamp()
	comment.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *commentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = key(id)
	if _, ok := s.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *commentStore) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.comments[key(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := rec.comment
	c.Author = s.userRef(c.AuthorID)
	return &c, nil
}

func (s *commentStore) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	ticketID = key(ticketID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*commentRecord
	for _, rec := range s.comments {
		if rec.comment.TicketID == ticketID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].order < recs[j].order })

	result := make([]domain.Comment, 0, len(recs))
	for _, rec := range recs {
		c := rec.comment
		c.Author = s.userRef(c.AuthorID)
		result = append(result, c)
	}
	return result, nil
}

type historyStore struct {
	*Store
}

func (s *historyStore) Create(_ context.Context, entry *domain.TicketHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.TicketID = key(entry.TicketID)
	if _, ok := s.tickets[entry.TicketID]; !ok {
		return fmt.Errorf("%w: ticket_history_ticket_id_fkey", repository.ErrInvalidReference)
	}
	entry.ID = newID()
	entry.CreatedAt = s.timestamp()
	stored := *entry
	stored.OldValue = cloneMap(entry.OldValue)
	stored.NewValue = cloneMap(entry.NewValue)
	s.history[entry.TicketID] = append(s.history[entry.TicketID], stored)
	return nil
}

func (s *historyStore) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[key(ticketID)]
	result := make([]domain.TicketHistory, len(entries))
	for i, e := range entries {
		result[i] = e
		result[i].OldValue = cloneMap(e.OldValue)
		result[i].NewValue = cloneMap(e.NewValue)
	}
	return result, nil
}
