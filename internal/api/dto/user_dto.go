package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserResponse is the public view of a user. The password hash never leaves
// the service.
type UserResponse struct {
	ID         string      `json:"id"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Role       domain.Role `json:"role"`
	FullName   string      `json:"fullName"`
	Department string      `json:"department"`
	IsActive   bool        `json:"isActive"`
	LastLogin  *time.Time  `json:"lastLogin"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// UserRefResponse is the embedded user shown next to tickets and comments.
type UserRefResponse struct {
	ID         string      `json:"id"`
	Username   string      `json:"username,omitempty"`
	FullName   string      `json:"fullName,omitempty"`
	Email      string      `json:"email,omitempty"`
	Department string      `json:"department,omitempty"`
	Role       domain.Role `json:"role,omitempty"`
}

// UpdateUserRequest payload. Absent fields are left unchanged.
type UpdateUserRequest struct {
	FullName   *string `json:"fullName"`
	Department *string `json:"department"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Role       *string `json:"role" validate:"omitempty,oneof=customer technician admin"`
	IsActive   *bool   `json:"isActive"`
}

// UserListResponse is one page of users.
type UserListResponse struct {
	Users       []UserResponse `json:"users"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	TotalUsers  int            `json:"totalUsers"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		FullName:   u.FullName,
		Department: u.Department,
		IsActive:   u.IsActive,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// NewUserResponses maps a slice of users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

func newUserRef(ref *domain.UserRef, fallbackID string) *UserRefResponse {
	if ref == nil {
		if fallbackID == "" {
			return nil
		}
		return &UserRefResponse{ID: fallbackID}
	}
	return &UserRefResponse{
		ID:         ref.ID,
		Username:   ref.Username,
		FullName:   ref.FullName,
		Email:      ref.Email,
		Department: ref.Department,
		Role:       ref.Role,
	}
}
