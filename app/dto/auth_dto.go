// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "time"

// RegisterRequest represents the request payload for account registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Username string `json:"username" validate:"required,username" example:"jane_doe"`
	Password string `json:"password" validate:"required,min=8,max=72" example:"SecurePass123!"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=1,max=72" example:"SecurePass123!"`
}

// RefreshTokenRequest carries a refresh token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// UserInfo represents user information returned by auth endpoints
type UserInfo struct {
	ID         string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email      string    `json:"email" example:"user@example.com"`
	Username   string    `json:"username" example:"jane_doe"`
	IsActive   bool      `json:"is_active" example:"true"`
	IsVerified bool      `json:"is_verified" example:"false"`
	CreatedAt  time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// TokenResponse is an access/refresh token pair
type TokenResponse struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int    `json:"expires_in" example:"900"`
}
