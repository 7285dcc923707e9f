package domain

import "time"

// Role determines what a user may do.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role works tickets rather than filing them.
func (r Role) IsStaff() bool {
	return r == RoleTechnician || r == RoleAdmin
}

// User is an account of any role. Users are never hard-deleted; deactivation
// clears IsActive and keeps the record.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	FullName     string
	Department   string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref returns the display projection joined onto tickets and comments.
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName,
		Email:      u.Email,
		Department: u.Department,
		Role:       u.Role,
	}
}

// UserRef is the subset of a user shown next to tickets and comments.
type UserRef struct {
	ID         string
	Username   string
	FullName   string
	Email      string
	Department string
	Role       Role
}
