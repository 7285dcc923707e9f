package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var _ repository.UserRepository = (*userStore)(nil)

type userStore struct {
	*Store
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.LastLogin = cloneTime(u.LastLogin)
	return &c
}

// checkUnique must be called with the lock held.
func (s *userStore) checkUnique(u *domain.User) error {
	email := strings.ToLower(u.Email)
	for id, existing := range s.users {
		if id == u.ID {
			continue
		}
		if existing.Username == u.Username {
			return &repository.DuplicateError{Field: "username"}
		}
		if existing.Email == email {
			return &repository.DuplicateError{Field: "email"}
		}
	}
	return nil
}

func (s *userStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	if err := s.checkUnique(user); err != nil {
		return err
	}
	now := s.timestamp()
	user.ID = newID()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *userStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.ID = key(user.ID)
	existing, ok := s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	user.Email = strings.ToLower(user.Email)
	if err := s.checkUnique(user); err != nil {
		return err
	}
	user.Username = existing.Username
	user.CreatedAt = existing.CreatedAt
	user.LastLogin = cloneTime(existing.LastLogin)
	user.UpdatedAt = s.timestamp()
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *userStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[key(id)]; ok {
		return cloneUser(u), nil
	}
	return nil, repository.ErrNotFound
}

func (s *userStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return s.find(func(u *domain.User) bool { return u.Username == username })
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(email)
	return s.find(func(u *domain.User) bool { return u.Email == email })
}

func (s *userStore) find(match func(*domain.User) bool) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *userStore) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []domain.User
	for _, u := range s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Department != "" && u.Department != filter.Department {
			continue
		}
		if filter.Active != nil && u.IsActive != *filter.Active {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(u.FullName), term) &&
			!strings.Contains(strings.ToLower(u.Email), term) &&
			!strings.Contains(strings.ToLower(u.Username), term) {
			continue
		}
		matched = append(matched, *cloneUser(u))
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Username < matched[j].Username
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (s *userStore) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[key(id)]
	if !ok {
		return repository.ErrNotFound
	}
	stamp := at.UTC()
	u.LastLogin = &stamp
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
