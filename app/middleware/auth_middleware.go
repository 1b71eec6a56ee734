// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/app/services"
	"github.com/gofiber/fiber/v3"
)

const (
	userIDLocal      = "user_id"
	tokenIDLocal     = "token_id"
	tokenClaimsLocal = "token_claims"
	requestIDLocal   = "request_id"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(c fiber.Ctx) (string, string, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", "Authorization header is required", "MISSING_AUTHORIZATION_HEADER"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "Access token is required", "MISSING_ACCESS_TOKEN"
	}
	return token, "", ""
}

// Authenticate rejects requests without a valid access token
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, message, code := bearerToken(c)
		if token == "" {
			return unauthorized(c, message, code)
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "Access token has expired", "TOKEN_EXPIRED")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
			default:
				return unauthorized(c, "Token validation failed", "TOKEN_VALIDATION_FAILED")
			}
		}
		if claims.TokenType != services.TokenTypeAccess {
			return unauthorized(c, "Refresh tokens cannot authorize requests", "TOKEN_INVALID")
		}

		storeClaims(c, claims)
		return c.Next()
	}
}

// OptionalAuth validates a bearer token when present; a missing or bad token leaves the request anonymous
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, _, _ := bearerToken(c)
		if token == "" {
			return c.Next()
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil || claims.TokenType != services.TokenTypeAccess {
			return c.Next()
		}

		storeClaims(c, claims)
		return c.Next()
	}
}

func storeClaims(c fiber.Ctx, claims *services.TokenClaims) {
	c.Locals(userIDLocal, claims.UserID)
	c.Locals(tokenIDLocal, claims.TokenID)
	c.Locals(tokenClaimsLocal, claims)

	if requestID := c.Get("X-Request-ID"); requestID != "" {
		c.Locals(requestIDLocal, requestID)
	}
}

// GetUserIDFromContext extracts the authenticated user id
func GetUserIDFromContext(c fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals(userIDLocal).(uint)
	return userID, ok && userID != 0
}

func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals(tokenClaimsLocal).(*services.TokenClaims)
	return claims, ok
}
