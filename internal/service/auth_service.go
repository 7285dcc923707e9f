package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 30
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// AuthService coordinates registration, login and token verification.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		now:        time.Now,
	}
}

// TokenManager exposes the signer for callers that mint tokens directly.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// RegisterInput carries the self-service sign-up form.
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	FullName   string
	Department string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	ExpiresAt time.Time
	User      *domain.User
}

// Register creates a customer account. The role is never taken from input.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	user, err := s.newUser(input, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, user, input.Password); err != nil {
		return nil, err
	}
	return user, nil
}

// Provision creates an account with any role. It backs operator tooling and
// is not reachable over HTTP.
func (s *AuthService) Provision(ctx context.Context, input RegisterInput, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("Invalid role", map[string]any{"role": role})
	}
	user, err := s.newUser(input, role)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, user, input.Password); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureAdmin provisions an admin unless the username is already taken. The
// bool reports whether an account was created. An existing account is left
// untouched whatever its role.
func (s *AuthService) EnsureAdmin(ctx context.Context, input RegisterInput) (*domain.User, bool, error) {
	existing, err := s.users.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, repoError(err, "User")
	}
	user, err := s.Provision(ctx, input, domain.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *AuthService) newUser(input RegisterInput, role domain.Role) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	fields := map[string]any{}
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		fields["username"] = "Username must be between 3 and 30 characters"
	}
	if !emailPattern.MatchString(email) {
		fields["email"] = "Please provide a valid email"
	}
	switch {
	case input.Password == "":
		fields["password"] = "Password is required"
	case len(input.Password) > auth.MaxPasswordBytes:
		fields["password"] = "Password cannot exceed 72 bytes"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("Validation failed", fields)
	}

	return &domain.User{
		Username:   username,
		Email:      email,
		Role:       role,
		FullName:   strings.TrimSpace(input.FullName),
		Department: strings.TrimSpace(input.Department),
		IsActive:   true,
	}, nil
}

func (s *AuthService) create(ctx context.Context, user *domain.User, password string) error {
	if _, err := s.users.GetByUsername(ctx, user.Username); err == nil {
		return apperrors.NewConflict("username already exists", map[string]any{"field": "username"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return repoError(err, "User")
	}
	if _, err := s.users.GetByEmail(ctx, user.Email); err == nil {
		return apperrors.NewConflict("email already exists", map[string]any{"field": "email"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return repoError(err, "User")
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash

	return repoError(s.users.Create(ctx, user), "User")
}

// Login authenticates by username. Unknown users and wrong passwords produce
// the same error after comparable work.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError("Username and password are required", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, repoError(err, "User")
		}
		_ = auth.ComparePassword(s.dummy(), password)
		return nil, apperrors.NewUnauthorized("Invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("Invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.NewAccountInactive(401)
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, repoError(err, "User")
	}
	stamp := now.UTC()
	user.LastLogin = &stamp

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresIn: s.tokenMgr.TTL(), ExpiresAt: exp, User: user}, nil
}

// dummy returns a hash used to equalize timing for unknown usernames.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword("helpdesk-dummy-password", s.bcryptCost)
	})
	return s.dummyHash
}

// Authenticate verifies a bearer token and reloads its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorized("No token provided")
	}
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.NewUnauthorized("Token expired")
		}
		return nil, apperrors.NewUnauthorized("Invalid token")
	}
	if checkID(claims.Subject) != nil {
		return nil, apperrors.NewUnauthorized("Invalid token")
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("User not found")
		}
		return nil, repoError(err, "User")
	}
	if !user.IsActive {
		return nil, apperrors.NewAccountInactive(403)
	}
	return user, nil
}
