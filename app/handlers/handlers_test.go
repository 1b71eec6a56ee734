package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirphl/shorty/app/middleware"
	"github.com/amirphl/shorty/app/services"
	businessflow "github.com/amirphl/shorty/business_flow"
	"github.com/amirphl/shorty/config"
	"github.com/amirphl/shorty/models"
	testingutil "github.com/amirphl/shorty/testing"
	"github.com/amirphl/shorty/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

type apiFixture struct {
	app    *fiber.App
	links  *testingutil.FakeShortLinkRepository
	clicks *testingutil.FakeClickEventRepository
	tokens services.TokenService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens, err := services.NewTokenService(15*time.Minute, 24*time.Hour, "shorty-test", "shorty-test-api", false, "", "",
		"test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	links := testingutil.NewFakeShortLinkRepository()
	clicks := testingutil.NewFakeClickEventRepository()
	users := testingutil.NewFakeUserRepository()
	cache := services.NewRedisCacheService(client, "")
	codes := services.NewCodeGenerator(6, nil)

	redirectFlow := businessflow.NewRedirectFlow(links, cache, codes, &testingutil.SyncClickRecorder{Repo: clicks}, time.Hour, "https://sho.rt")
	shortLinkFlow := businessflow.NewShortLinkFlow(links, clicks, cache, codes, config.ShortenerConfig{BaseURL: "https://sho.rt", MaxAttempts: 10})
	authFlow := businessflow.NewAuthFlow(users, tokens, config.SecurityConfig{BcryptCost: bcrypt.MinCost})

	shortLinks := NewShortLinkHandler(redirectFlow, shortLinkFlow)
	auth := NewAuthHandler(authFlow)
	health := NewHealthHandler("test", map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	})
	authMw := middleware.NewAuthMiddleware(tokens)

	app := fiber.New()
	app.Get("/health", health.Health)
	app.Get("/health/ready", health.Ready)
	api := app.Group("/api/v1")
	api.Post("/auth/register", auth.Register)
	api.Post("/auth/login", auth.Login)
	api.Post("/auth/refresh", auth.Refresh)
	api.Post("/urls", authMw.OptionalAuth(), shortLinks.Create)
	api.Get("/urls", authMw.Authenticate(), shortLinks.List)
	api.Get("/urls/:code", shortLinks.Info)
	api.Get("/urls/:code/stats", authMw.Authenticate(), shortLinks.Stats)
	api.Get("/urls/:code/clicks/export", authMw.Authenticate(), shortLinks.ExportClicks)
	api.Delete("/urls/:code", authMw.Authenticate(), shortLinks.Delete)
	app.Get("/:code", shortLinks.Redirect)

	return &apiFixture{app: app, links: links, clicks: clicks, tokens: tokens}
}

func (f *apiFixture) bearer(t *testing.T, userID uint) string {
	t.Helper()
	access, _, err := f.tokens.GenerateTokens(userID)
	require.NoError(t, err)
	return "Bearer " + access
}

func (f *apiFixture) call(t *testing.T, method, path string, body any, auth string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func TestCreateAndRedirect(t *testing.T) {
	f := newAPIFixture(t)

	resp, env := f.call(t, fiber.MethodPost, "/api/v1/urls", map[string]any{"long_url": "https://example.com/landing"}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var created struct {
		ShortCode string `json:"short_code"`
		ShortURL  string `json:"short_url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Len(t, created.ShortCode, 6)
	assert.Equal(t, "https://sho.rt/"+created.ShortCode, created.ShortURL)

	resp, _ = f.call(t, fiber.MethodGet, "/"+created.ShortCode, nil, "")
	assert.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "https://example.com/landing", resp.Header.Get("Location"))
	assert.Equal(t, 1, f.clicks.Len())
}

func TestRedirect_Errors(t *testing.T) {
	f := newAPIFixture(t)
	f.links.Put(&models.ShortLink{ShortCode: "old123", LongURL: "https://example.com", ExpiresAt: utils.ToPtr(time.Now().Add(-time.Minute))})

	resp, env := f.call(t, fiber.MethodGet, "/nope12", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SHORT_LINK_NOT_FOUND", env.Error.Code)

	resp, env = f.call(t, fiber.MethodGet, "/old123", nil, "")
	assert.Equal(t, fiber.StatusGone, resp.StatusCode)
	assert.Equal(t, "SHORT_LINK_EXPIRED", env.Error.Code)
}

func TestCreate_Errors(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.bearer(t, 1)

	resp, env := f.call(t, fiber.MethodPost, "/api/v1/urls", map[string]any{"long_url": "https://example.com", "custom_alias": "promo"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "AUTHENTICATION_REQUIRED", env.Error.Code)

	resp, _ = f.call(t, fiber.MethodPost, "/api/v1/urls", map[string]any{"long_url": "https://example.com", "custom_alias": "promo"}, owner)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/urls", map[string]any{"long_url": "https://example.com", "custom_alias": "promo"}, owner)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALIAS_TAKEN", env.Error.Code)

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/urls", map[string]any{"long_url": "not a url"}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/urls", map[string]any{"long_url": "https://example.com", "custom_alias": "no-dash"}, owner)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestValidation_RejectsBeforeTheFlowRuns(t *testing.T) {
	f := newAPIFixture(t)
	owner := f.bearer(t, 1)

	tooLong := "https://example.com/" + strings.Repeat("a", 3000)
	resp, env := f.call(t, fiber.MethodPost, "/api/v1/urls", map[string]any{"long_url": tooLong}, owner)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/urls", map[string]any{"long_url": "https://example.com", "custom_alias": " abc "}, owner)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	all, err := f.links.AllShortCodes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "rejected requests must not create links")

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/auth/register", map[string]any{"email": "not-an-email", "username": "jane_doe", "password": "correct-horse"}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/auth/register", map[string]any{"email": "jane@example.com", "username": "jane_doe", "password": "short"}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	resp, _ = f.call(t, fiber.MethodPost, "/api/v1/auth/register", map[string]any{"email": "jane@example.com", "username": "jane_doe", "password": "correct-horse"}, "")
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode, "earlier rejected attempts must not have registered the email")

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/auth/refresh", map[string]any{}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestOwnerEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	ownerID := uint(1)
	owner, stranger := f.bearer(t, ownerID), f.bearer(t, 2)
	f.links.Put(&models.ShortLink{ShortCode: "mine12", LongURL: "https://example.com", OwnerID: &ownerID})

	resp, _ := f.call(t, fiber.MethodGet, "/api/v1/urls", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, env := f.call(t, fiber.MethodGet, "/api/v1/urls?page=1&page_size=10", nil, owner)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var list struct {
		Total    int64 `json:"total"`
		PageSize int   `json:"page_size"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 10, list.PageSize)

	resp, env = f.call(t, fiber.MethodGet, "/api/v1/urls?page_size=500", nil, owner)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_PAGE_SIZE", env.Error.Code)

	resp, env = f.call(t, fiber.MethodGet, "/api/v1/urls/mine12/stats", nil, stranger)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "ACCESS_DENIED", env.Error.Code)

	resp, _ = f.call(t, fiber.MethodGet, "/api/v1/urls/mine12/stats", nil, owner)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = f.call(t, fiber.MethodGet, "/api/v1/urls/mine12/clicks/export", nil, owner)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `filename="clicks_mine12.xlsx"`)

	resp, _ = f.call(t, fiber.MethodDelete, "/api/v1/urls/mine12", nil, stranger)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = f.call(t, fiber.MethodDelete, "/api/v1/urls/mine12", nil, owner)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = f.call(t, fiber.MethodGet, "/mine12", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestInfo_DoesNotCountClick(t *testing.T) {
	f := newAPIFixture(t)
	f.links.Put(&models.ShortLink{ShortCode: "info12", LongURL: "https://example.com"})

	resp, env := f.call(t, fiber.MethodGet, "/api/v1/urls/info12", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"short_code":"info12"`)
	assert.Zero(t, f.clicks.Len())
}

func TestAuthEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	register := map[string]any{"email": "jane@example.com", "username": "jane_doe", "password": "correct-horse"}

	resp, _ := f.call(t, fiber.MethodPost, "/api/v1/auth/register", register, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, env := f.call(t, fiber.MethodPost, "/api/v1/auth/register", register, "")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "EMAIL_EXISTS", env.Error.Code)

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/auth/register", map[string]any{"email": "x@example.com", "username": "a b", "password": "correct-horse"}, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/auth/login", map[string]any{"email": "jane@example.com", "password": "wrong-horse"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/auth/login", map[string]any{"email": "jane@example.com", "password": "correct-horse"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tokens))

	resp, _ = f.call(t, fiber.MethodGet, "/api/v1/urls", nil, "Bearer "+tokens.RefreshToken)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.call(t, fiber.MethodPost, "/api/v1/auth/refresh", map[string]any{"refresh_token": tokens.RefreshToken}, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, env = f.call(t, fiber.MethodPost, "/api/v1/auth/refresh", map[string]any{"refresh_token": tokens.AccessToken}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", env.Error.Code)
}

func TestHealthReady(t *testing.T) {
	f := newAPIFixture(t)

	resp, _ := f.call(t, fiber.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	h := NewHealthHandler("test", map[string]HealthCheck{
		"database": func(context.Context) error { return errors.New("connection refused") },
	})
	app := fiber.New()
	app.Get("/health/ready", h.Ready)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
