package dto

import "time"

// RegisterRequest payload for self-service sign-up.
type RegisterRequest struct {
	Username   string `json:"username" validate:"required"`
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	FullName   string `json:"fullName"`
	Department string `json:"department"`
}

// RegisterResponse is returned after a successful sign-up.
type RegisterResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginRequest payload. Missing fields are reported by the service so that
// every credential failure looks alike.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}
