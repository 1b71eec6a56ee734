package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/app/services"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

func newTokenService(t *testing.T, accessTTL time.Duration) services.TokenService {
	t.Helper()
	ts, err := services.NewTokenService(accessTTL, time.Hour, "shorty-test", "shorty-test-api", false, "", "", testSecret)
	require.NoError(t, err)
	return ts
}

// newAuthApp echoes the authenticated user id and token type, or "anonymous"
func newAuthApp(ts services.TokenService) *fiber.App {
	m := NewAuthMiddleware(ts)
	app := fiber.New()

	whoami := func(c fiber.Ctx) error {
		userID, ok := GetUserIDFromContext(c)
		if !ok {
			return c.JSON(fiber.Map{"user": "anonymous"})
		}
		claims, ok := GetTokenClaimsFromContext(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.JSON(fiber.Map{"user": userID, "type": claims.TokenType})
	}
	app.Get("/private", m.Authenticate(), whoami)
	app.Get("/public", m.OptionalAuth(), whoami)
	return app
}

func call(t *testing.T, app *fiber.App, path, authorization string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func errorCode(body map[string]any) string {
	detail, _ := body["error"].(map[string]any)
	code, _ := detail["code"].(string)
	return code
}

func TestAuthenticate(t *testing.T) {
	ts := newTokenService(t, 15*time.Minute)
	app := newAuthApp(ts)

	access, refresh, err := ts.GenerateTokens(7)
	require.NoError(t, err)

	expired, _, err := newTokenService(t, -time.Minute).GenerateTokens(7)
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
		code          string
	}{
		{"missing header", "", "MISSING_AUTHORIZATION_HEADER"},
		{"wrong scheme", "Basic abc", "INVALID_AUTHORIZATION_FORMAT"},
		{"garbage token", "Bearer not-a-jwt", "TOKEN_INVALID"},
		{"expired token", "Bearer " + expired, "TOKEN_EXPIRED"},
		{"refresh token", "Bearer " + refresh, "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, "/private", tt.authorization)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, errorCode(body))
		})
	}

	t.Run("valid access token", func(t *testing.T) {
		status, body := call(t, app, "/private", "Bearer "+access)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(7), body["user"])
		assert.Equal(t, services.TokenTypeAccess, body["type"])
	})
}

func TestOptionalAuth(t *testing.T) {
	ts := newTokenService(t, 15*time.Minute)
	app := newAuthApp(ts)

	access, refresh, err := ts.GenerateTokens(9)
	require.NoError(t, err)

	for _, authorization := range []string{"", "Bearer nope", "Bearer " + refresh, "Token " + access} {
		status, body := call(t, app, "/public", authorization)
		assert.Equal(t, http.StatusOK, status, authorization)
		assert.Equal(t, "anonymous", body["user"], authorization)
	}

	status, body := call(t, app, "/public", "Bearer "+access)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(9), body["user"])
}

func TestUnauthorizedEnvelope(t *testing.T) {
	app := newAuthApp(newTokenService(t, time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope dto.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "Authorization header is required", envelope.Message)
}
