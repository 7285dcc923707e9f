package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type testServer struct {
	app  *fiber.App
	auth *service.AuthService
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  map[string]any  `json:"errors"`
	Stack   string          `json:"stack"`
}

func newTestServer(t *testing.T, development bool) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher(logger)

	service.NewAuditService(service.AuditDependencies{
		Dispatcher:  dispatcher,
		HistoryRepo: store.History(),
		Metrics:     metrics,
		Logger:      logger,
	}).RegisterHandlers()

	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "router-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4}}
	authSvc := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: store.Users()})
	ticketSvc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  store.Tickets(),
		UserRepo:    store.Users(),
		HistoryRepo: store.History(),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	commentSvc := service.NewCommentService(service.CommentDependencies{
		TicketRepo:  store.Tickets(),
		CommentRepo: store.Comments(),
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	reportSvc := service.NewReportService(service.ReportDependencies{TicketRepo: store.Tickets(), Metrics: metrics, Logger: logger})
	adminSvc := service.NewAdminService(service.AdminDependencies{TicketRepo: store.Tickets(), Dispatcher: dispatcher, Logger: logger})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics, development)})
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{CORSOrigin: "http://localhost:5173", Development: development})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-service", "test", nil, nil),
		Auth:           handlers.NewAuthHandler(authSvc),
		Tickets:        handlers.NewTicketsHandler(ticketSvc),
		Comments:       handlers.NewCommentsHandler(commentSvc),
		Users:          handlers.NewUsersHandler(service.NewUserService(service.UserDependencies{UserRepo: store.Users(), Dispatcher: dispatcher, Logger: logger})),
		Dashboard:      handlers.NewDashboardHandler(reportSvc),
		Admin:          handlers.NewAdminHandler(adminSvc, reportSvc),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc),
		Metrics:        metrics,
	})
	return &testServer{app: app, auth: authSvc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env, raw
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	status, env, _ := s.do(t, "POST", "/api/auth/login", "", fiber.Map{"username": username, "password": password})
	require.Equal(t, fiber.StatusOK, status, env.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func (s *testServer) provision(t *testing.T, username string, role domain.Role) string {
	t.Helper()
	_, err := s.auth.Provision(context.Background(), service.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
		FullName: username,
	}, role)
	require.NoError(t, err)
	return s.login(t, username, "secret123")
}

func TestRegisterLoginCreateTicket(t *testing.T) {
	s := newTestServer(t, false)

	status, env, _ := s.do(t, "POST", "/api/auth/register", "", fiber.Map{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret123",
		"fullName": "Alice Doe",
		"role":     "admin",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	assert.True(t, env.Success)
	assert.Equal(t, "User registered successfully", env.Message)

	token := s.login(t, "alice", "secret123")

	status, env, _ = s.do(t, "GET", "/api/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var me struct {
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "customer", me.Role)

	status, env, _ = s.do(t, "POST", "/api/tickets", token, fiber.Map{
		"title":       "Printer jam",
		"description": "Paper stuck in tray 2",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var created struct {
		Ticket struct {
			TicketNumber string `json:"ticketNumber"`
			Status       string `json:"status"`
			Priority     string `json:"priority"`
			Category     string `json:"category"`
			CreatedBy    struct {
				Username string `json:"username"`
			} `json:"createdBy"`
		} `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "TKT-00001", created.Ticket.TicketNumber)
	assert.Equal(t, "open", created.Ticket.Status)
	assert.Equal(t, "medium", created.Ticket.Priority)
	assert.Equal(t, "other", created.Ticket.Category)
	assert.Equal(t, "alice", created.Ticket.CreatedBy.Username)
}

func TestCustomerCannotDeleteTicket(t *testing.T) {
	s := newTestServer(t, false)
	token := s.provision(t, "carol", domain.RoleCustomer)

	status, env, _ := s.do(t, "POST", "/api/tickets", token, fiber.Map{"title": "VPN", "description": "down"})
	require.Equal(t, fiber.StatusCreated, status)
	var created struct {
		Ticket struct {
			ID string `json:"id"`
		} `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	status, env, _ = s.do(t, "DELETE", "/api/tickets/"+created.Ticket.ID, token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Insufficient permissions", env.Message)

	status, _, _ = s.do(t, "GET", "/api/tickets/"+created.Ticket.ID, token, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestFailedLoginsAreIndistinguishable(t *testing.T) {
	s := newTestServer(t, false)
	s.provision(t, "dave", domain.RoleCustomer)

	wrongStatus, _, wrongBody := s.do(t, "POST", "/api/auth/login", "", fiber.Map{"username": "dave", "password": "nope"})
	unknownStatus, _, unknownBody := s.do(t, "POST", "/api/auth/login", "", fiber.Map{"username": "ghost", "password": "nope"})

	assert.Equal(t, fiber.StatusUnauthorized, wrongStatus)
	assert.Equal(t, wrongStatus, unknownStatus)
	assert.JSONEq(t, string(wrongBody), string(unknownBody))
	assert.JSONEq(t, `{"success":false,"message":"Invalid credentials"}`, string(wrongBody))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, false)

	status, env, _ := s.do(t, "GET", "/api/nowhere", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Route /api/nowhere not found", env.Message)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, false)

	status, env, _ := s.do(t, "GET", "/api/tickets", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "No token provided", env.Message)

	status, env, _ = s.do(t, "GET", "/api/tickets", "garbage", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Invalid token", env.Message)
}

func TestValidationErrorsListFields(t *testing.T) {
	s := newTestServer(t, false)
	token := s.provision(t, "erin", domain.RoleCustomer)

	status, env, _ := s.do(t, "POST", "/api/tickets", token, fiber.Map{"title": "", "priority": "critical"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Validation error", env.Message)
	assert.Contains(t, env.Errors, "title")
	assert.Contains(t, env.Errors, "description")
	assert.Contains(t, env.Errors, "priority")
	assert.Empty(t, env.Stack)
}

func TestStackOnlyInDevelopment(t *testing.T) {
	s := newTestServer(t, true)

	_, env, _ := s.do(t, "GET", "/api/tickets", "", nil)
	assert.NotEmpty(t, env.Stack)
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t, false)
	customer := s.provision(t, "frank", domain.RoleCustomer)
	tech := s.provision(t, "tina", domain.RoleTechnician)
	admin := s.provision(t, "root", domain.RoleAdmin)

	status, _, _ := s.do(t, "GET", "/api/tickets/unassigned", customer, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _, _ = s.do(t, "GET", "/api/tickets/unassigned", tech, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _, _ = s.do(t, "GET", "/api/users", tech, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, env, _ := s.do(t, "GET", "/api/users", admin, nil)
	require.Equal(t, fiber.StatusOK, status)
	var users struct {
		TotalUsers int `json:"totalUsers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Equal(t, 3, users.TotalUsers)

	status, _, _ = s.do(t, "POST", "/api/admin/tickets/bulk-assign", tech, fiber.Map{})
	assert.Equal(t, fiber.StatusForbidden, status)
	status, env, _ = s.do(t, "POST", "/api/admin/tickets/bulk-assign", admin, fiber.Map{"technicianId": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Ticket IDs must be provided as an array", env.Message)
}

func TestTechnicianWorkflow(t *testing.T) {
	s := newTestServer(t, false)
	customer := s.provision(t, "gina", domain.RoleCustomer)
	tech := s.provision(t, "hank", domain.RoleTechnician)

	_, env, _ := s.do(t, "POST", "/api/tickets", customer, fiber.Map{"title": "Laptop", "description": "won't boot", "category": "hardware"})
	var created struct {
		Ticket struct {
			ID string `json:"id"`
		} `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	id := created.Ticket.ID

	_, env, _ = s.do(t, "GET", "/api/auth/me", tech, nil)
	var me struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))

	status, env, _ := s.do(t, "PATCH", "/api/tickets/"+id+"/assign", tech, fiber.Map{"technicianId": me.ID})
	require.Equal(t, fiber.StatusOK, status, env.Message)
	var assigned struct {
		Ticket struct {
			Status string `json:"status"`
		} `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &assigned))
	assert.Equal(t, "in-progress", assigned.Ticket.Status)

	status, env, _ = s.do(t, "PATCH", "/api/tickets/"+id+"/status", tech, fiber.Map{"status": "resolved"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Resolution is required when resolving a ticket", env.Message)

	status, _, _ = s.do(t, "PATCH", "/api/tickets/"+id+"/status", tech, fiber.Map{"status": "resolved", "resolution": "Reseated RAM"})
	assert.Equal(t, fiber.StatusOK, status)

	status, env, _ = s.do(t, "POST", "/api/tickets/"+id+"/comments", customer, fiber.Map{"text": "Thanks!"})
	require.Equal(t, fiber.StatusCreated, status, env.Message)

	status, env, _ = s.do(t, "GET", "/api/tickets/"+id+"/history", tech, nil)
	require.Equal(t, fiber.StatusOK, status)
	var history []struct {
		ChangeType string `json:"changeType"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.NotEmpty(t, history)
	assert.Equal(t, "CREATED", history[0].ChangeType)

	status, env, _ = s.do(t, "GET", "/api/dashboard/stats", customer, nil)
	require.Equal(t, fiber.StatusOK, status)
	var stats domain.TicketStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, domain.TicketStats{Total: 1, Resolved: 1}, stats)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, false)

	status, env, _ := s.do(t, "GET", "/api/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Server is healthy", env.Message)

	status, _, _ = s.do(t, "GET", "/api/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _, raw := s.do(t, "GET", "/metrics", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(raw), "helpdesk_")
}
