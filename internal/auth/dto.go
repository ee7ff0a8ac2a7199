package auth

import (
	"github.com/tryonstudio/tryon-backend/internal/users"
)

// LoginRequest carries the credentials submitted to /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the token pair plus the authenticated profile.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RegisterResponse returns the freshly created profile.
type RegisterResponse struct {
	User *users.UserDTO `json:"user"`
}
