package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// UsersHandler exposes user management endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.users.List(c.UserContext(), caller, service.UserQuery{
		Role:       c.Query("role"),
		Department: c.Query("department"),
		Search:     c.Query("search"),
		Page:       parseInt(c.Query("page"), 0),
		Limit:      parseInt(c.Query("limit"), 0),
	})
	if err != nil {
		return err
	}
	return ok(c, "Users retrieved successfully", dto.UserListResponse{
		Users:       dto.NewUserResponses(page.Users),
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		TotalUsers:  page.TotalUsers,
	})
}

// Technicians handles GET /api/users/technicians.
func (h *UsersHandler) Technicians(c *fiber.Ctx) error {
	techs, err := h.users.Technicians(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, "Technicians retrieved successfully", dto.NewUserResponses(techs))
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, "User retrieved successfully", dto.NewUserResponse(user))
}

// Update handles PATCH /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	patch := service.UserPatch{
		FullName:   req.FullName,
		Department: req.Department,
		Email:      req.Email,
		IsActive:   req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}

	user, err := h.users.Update(c.UserContext(), caller, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return ok(c, "User updated successfully", dto.NewUserResponse(user))
}

// Deactivate handles DELETE /api/users/:id. Users are never hard-deleted.
func (h *UsersHandler) Deactivate(c *fiber.Ctx) error {
	caller, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.users.Deactivate(c.UserContext(), caller, c.Params("id")); err != nil {
		return err
	}
	return ok(c, "User deactivated successfully", nil)
}
