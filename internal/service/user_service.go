package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const defaultUserPageSize = 10

// UserService exposes account administration.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// UserDependencies bundles repositories for user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &UserService{
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// UserQuery carries raw listing parameters.
type UserQuery struct {
	Role       string
	Department string
	Search     string
	Page       int
	Limit      int
}

// UserPage is one page of users.
type UserPage struct {
	Users       []domain.User
	TotalUsers  int
	TotalPages  int
	CurrentPage int
}

// UserPatch is the allow-list of mutable profile fields. Role and IsActive
// are restricted to admins.
type UserPatch struct {
	FullName   *string
	Department *string
	Email      *string
	Role       *domain.Role
	IsActive   *bool
}

func (p UserPatch) restricted() bool {
	return p.Role != nil || p.IsActive != nil
}

// List returns a page of users, newest first.
func (s *UserService) List(ctx context.Context, caller *domain.User, query UserQuery) (*UserPage, error) {
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionListUsers, policy.Resource{}); err != nil {
		return nil, err
	}
	filter := repository.UserFilter{
		Department: strings.TrimSpace(query.Department),
		Search:     strings.TrimSpace(query.Search),
	}
	if query.Role != "" {
		role := domain.Role(query.Role)
		if !role.Valid() {
			return nil, apperrors.NewValidationError("Invalid role filter", map[string]any{"role": query.Role})
		}
		filter.Role = role
	}
	page, limit := normalizePage(query.Page, query.Limit, defaultUserPageSize, maxTicketPageSize)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, repoError(err, "User")
	}
	return &UserPage{
		Users:       users,
		TotalUsers:  total,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		CurrentPage: page,
	}, nil
}

// Technicians lists active technicians for assignment pickers.
func (s *UserService) Technicians(ctx context.Context) ([]domain.User, error) {
	active := true
	users, _, err := s.users.List(ctx, repository.UserFilter{Role: domain.RoleTechnician, Active: &active})
	if err != nil {
		return nil, repoError(err, "User")
	}
	return users, nil
}

// Get returns a profile visible to the caller.
func (s *UserService) Get(ctx context.Context, caller *domain.User, id string) (*domain.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionViewUser, policy.Resource{OwnerID: user.ID}); err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies a profile patch.
func (s *UserService) Update(ctx context.Context, caller *domain.User, id string, patch UserPatch) (*domain.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	subject := policy.SubjectOf(caller)
	res := policy.Resource{OwnerID: user.ID}
	if patch.restricted() {
		if err := policy.Authorize(subject, policy.ActionManageUser, res); err != nil {
			return nil, err
		}
	}
	if err := policy.Authorize(subject, policy.ActionEditProfile, res); err != nil {
		return nil, err
	}

	before := *user
	if patch.FullName != nil {
		user.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.Department != nil {
		user.Department = strings.TrimSpace(*patch.Department)
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, apperrors.NewValidationError("Invalid role", map[string]any{"role": *patch.Role})
		}
		user.Role = *patch.Role
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if !emailPattern.MatchString(email) {
			return nil, apperrors.NewValidationError("Please provide a valid email", map[string]any{"email": *patch.Email})
		}
		if email != user.Email {
			existing, err := s.users.GetByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != user.ID:
				return nil, apperrors.NewConflict("email already exists", map[string]any{"field": "email"})
			case err != nil && !errors.Is(err, repository.ErrNotFound):
				return nil, repoError(err, "User")
			}
		}
		user.Email = email
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, repoError(err, "User")
	}
	if fields := changedUserFields(&before, user); len(fields) > 0 {
		s.publish(ctx, events.New(events.EventUserUpdated, "", caller.ID, s.now(), events.UserUpdatedPayload{
			UserID:      user.ID,
			Fields:      fields,
			Deactivated: before.IsActive && !user.IsActive,
		}))
	}
	return user, nil
}

func changedUserFields(before, after *domain.User) []string {
	var fields []string
	if before.FullName != after.FullName {
		fields = append(fields, "fullName")
	}
	if before.Department != after.Department {
		fields = append(fields, "department")
	}
	if before.Email != after.Email {
		fields = append(fields, "email")
	}
	if before.Role != after.Role {
		fields = append(fields, "role")
	}
	if before.IsActive != after.IsActive {
		fields = append(fields, "isActive")
	}
	return fields
}

// Deactivate soft-deletes an account.
func (s *UserService) Deactivate(ctx context.Context, caller *domain.User, id string) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(policy.SubjectOf(caller), policy.ActionManageUser, policy.Resource{OwnerID: user.ID}); err != nil {
		return err
	}
	wasActive := user.IsActive
	user.IsActive = false
	if err := s.users.Update(ctx, user); err != nil {
		return repoError(err, "User")
	}
	if wasActive {
		s.publish(ctx, events.New(events.EventUserUpdated, "", caller.ID, s.now(), events.UserUpdatedPayload{
			UserID:      user.ID,
			Fields:      []string{"isActive"},
			Deactivated: true,
		}))
	}
	return nil
}

func (s *UserService) publish(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, event)
}

func (s *UserService) load(ctx context.Context, id string) (*domain.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(err, "User")
	}
	return user, nil
}
