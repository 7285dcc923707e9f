package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type fixture struct {
	store    *memory.Store
	clock    *testClock
	metrics  *observability.Metrics
	auth     *AuthService
	tickets  *TicketService
	comments *CommentService
	users    *UserService
	reports  *ReportService
	admin    *AdminService
}

func testConfig() config.Config {
	return config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newCachedFixture(t, nil)
}

// newCachedFixture shares statsCache between the audit and report services
// the way the server does.
func newCachedFixture(t *testing.T, statsCache *cache.Client) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	store := memory.NewStore(memory.WithClock(clock.Now))
	dispatcher := events.NewInMemoryDispatcher(nil)
	metrics := observability.NewMetrics()

	NewAuditService(AuditDependencies{
		Dispatcher:  dispatcher,
		HistoryRepo: store.History(),
		Cache:       statsCache,
		Metrics:     metrics,
	}).RegisterHandlers()

	authSvc := NewAuthService(testConfig(), AuthDependencies{UserRepo: store.Users()})
	authSvc.now = clock.Now

	return &fixture{
		store:   store,
		clock:   clock,
		metrics: metrics,
		auth:    authSvc,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:  store.Tickets(),
			UserRepo:    store.Users(),
			HistoryRepo: store.History(),
			Dispatcher:  dispatcher,
			Clock:       clock.Now,
		}),
		comments: NewCommentService(CommentDependencies{
			TicketRepo:  store.Tickets(),
			CommentRepo: store.Comments(),
			Dispatcher:  dispatcher,
		}),
		users: NewUserService(UserDependencies{
			UserRepo:   store.Users(),
			Dispatcher: dispatcher,
			Clock:      clock.Now,
		}),
		reports: NewReportService(ReportDependencies{
			TicketRepo: store.Tickets(),
			Cache:      statsCache,
			Metrics:    metrics,
			StatsTTL:   5 * time.Minute,
		}),
		admin: NewAdminService(AdminDependencies{
			TicketRepo: store.Tickets(),
			Dispatcher: dispatcher,
			Clock:      clock.Now,
		}),
	}
}

func (f *fixture) user(t *testing.T, username string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		FullName: username + " full",
		IsActive: true,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) ticket(t *testing.T, owner *domain.User, title string) *domain.Ticket {
	t.Helper()
	tk, err := f.tickets.CreateTicket(context.Background(), owner, CreateTicketInput{
		Title:       title,
		Description: title + " details",
	})
	require.NoError(t, err)
	return tk
}

func requireCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	require.Equal(t, code, de.Code, "unexpected error: %v", err)
	return de
}

func ptr[T any](v T) *T { return &v }
