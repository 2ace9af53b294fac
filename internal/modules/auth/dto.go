package auth

import "villabook/internal/domain"

type RegisterRequest struct {
	Email    string          `json:"email" validate:"required,email,max=255"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Name     string          `json:"name" validate:"required,max=255"`
	Phone    string          `json:"phone" validate:"omitempty,max=50"`
	Role     domain.UserRole `json:"role" validate:"omitempty,oneof=guest owner"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
}
