// Package memory keeps every repository in process memory. It backs the
// service when no database is configured and gives tests a real store.
package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Store holds all records behind one lock so cross-table reads stay
// consistent with writes.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	seq      int64
	order    int64
	users    map[string]*domain.User
	tickets  map[string]*ticketRecord
	comments map[string]*commentRecord
	history  map[string][]domain.TicketHistory
}

type ticketRecord struct {
	ticket domain.Ticket
	seq    int64
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		users:    make(map[string]*domain.User),
		tickets:  make(map[string]*ticketRecord),
		comments: make(map[string]*commentRecord),
		history:  make(map[string][]domain.TicketHistory),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return &userStore{s} }

// Tickets returns the ticket repository view of the store.
func (s *Store) Tickets() repository.TicketRepository { return &ticketStore{s} }

// Comments returns the comment repository view of the store.
func (s *Store) Comments() repository.CommentRepository { return &commentStore{s} }

// History returns the ticket history repository view of the store.
func (s *Store) History() repository.TicketHistoryRepository { return &historyStore{s} }

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func newID() string {
	return uuid.NewString()
}

// key canonicalizes an id. Generated ids are lower-case, callers may send any case.
func key(id string) string {
	return strings.ToLower(id)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// userRef must be called with the lock held.
func (s *Store) userRef(id string) *domain.UserRef {
	if u, ok := s.users[id]; ok {
		return u.Ref()
	}
	return nil
}
