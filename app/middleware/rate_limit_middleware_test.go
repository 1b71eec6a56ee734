package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/app/services"
	"github.com/amirphl/shorty/config"
	"github.com/amirphl/shorty/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimits() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:           true,
		IPLimit:           5,
		IPWindow:          time.Minute,
		UserLimit:         1,
		UserWindow:        time.Hour,
		URLCreationLimit:  2,
		URLCreationWindow: time.Minute,
		RegisterLimit:     1,
		LoginLimit:        3,
		AuthWindow:        time.Minute,
		RetryAfter:        time.Minute,
	}
}

func newLimitedApp(t *testing.T, cfg config.RateLimitConfig) (*fiber.App, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rl := NewRateLimitMiddleware(services.NewRedisRateLimiter(client, cfg, nil), cfg)
	app := fiber.New()
	app.Use(rl.Handler())

	ok := func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Post("/api/v1/urls", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	app.Get("/api/v1/urls", ok)
	app.Post("/api/v1/auth/register", ok)
	app.Get("/health", ok)

	asUser := func(c fiber.Ctx) error {
		c.Locals(userIDLocal, uint(42))
		return c.Next()
	}
	app.Get("/api/v1/me", asUser, rl.UserHandler(), ok)
	return app, mr
}

func do(t *testing.T, app *fiber.App, method, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	return resp
}

func TestRateLimit_URLCreationRule(t *testing.T) {
	app, _ := newLimitedApp(t, testLimits())

	assert.Equal(t, fiber.StatusCreated, do(t, app, fiber.MethodPost, "/api/v1/urls").StatusCode)
	second := do(t, app, fiber.MethodPost, "/api/v1/urls")
	assert.Equal(t, fiber.StatusCreated, second.StatusCode)
	assert.Equal(t, "2", second.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", second.Header.Get("X-RateLimit-Remaining"))

	denied := do(t, app, fiber.MethodPost, "/api/v1/urls")
	assert.Equal(t, fiber.StatusTooManyRequests, denied.StatusCode)
	assert.NotEmpty(t, denied.Header.Get(fiber.HeaderRetryAfter))

	body, err := io.ReadAll(denied.Body)
	require.NoError(t, err)
	var envelope dto.APIResponse
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.False(t, envelope.Success)
	detail, ok := envelope.Error.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", detail["code"])

	// listing is not a creation and falls back to the IP limit
	listed := do(t, app, fiber.MethodGet, "/api/v1/urls")
	assert.Equal(t, fiber.StatusOK, listed.StatusCode)
	assert.Equal(t, "5", listed.Header.Get("X-RateLimit-Limit"))
}

func TestRateLimit_RuleKeys(t *testing.T) {
	app, mr := newLimitedApp(t, testLimits())

	do(t, app, fiber.MethodPost, "/api/v1/urls")
	do(t, app, fiber.MethodPost, "/api/v1/auth/register")
	do(t, app, fiber.MethodGet, "/api/v1/urls")

	keys := mr.Keys()
	require.Len(t, keys, 3)
	var prefixes []string
	for _, key := range keys {
		assert.NotContains(t, key, "/", "paths never leak into limiter keys")
		prefixes = append(prefixes, key[:strings.LastIndex(key, ":")])
	}
	assert.ElementsMatch(t, []string{
		utils.RateLimitPrefixURLCreation,
		services.MakeKey(utils.RateLimitPrefixEndpoint, "register"),
		utils.RateLimitPrefixIP,
	}, prefixes)
}

func TestRateLimit_EndpointRulesAreIndependent(t *testing.T) {
	app, _ := newLimitedApp(t, testLimits())

	assert.Equal(t, fiber.StatusOK, do(t, app, fiber.MethodPost, "/api/v1/auth/register").StatusCode)
	assert.Equal(t, fiber.StatusTooManyRequests, do(t, app, fiber.MethodPost, "/api/v1/auth/register").StatusCode)
	assert.Equal(t, fiber.StatusCreated, do(t, app, fiber.MethodPost, "/api/v1/urls").StatusCode)
}

func TestRateLimit_ExemptPaths(t *testing.T) {
	cfg := testLimits()
	cfg.IPLimit = 1
	app, _ := newLimitedApp(t, cfg)

	for range 3 {
		resp := do(t, app, fiber.MethodGet, "/health")
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_PerUser(t *testing.T) {
	app, _ := newLimitedApp(t, testLimits())

	assert.Equal(t, fiber.StatusOK, do(t, app, fiber.MethodGet, "/api/v1/me").StatusCode)
	assert.Equal(t, fiber.StatusTooManyRequests, do(t, app, fiber.MethodGet, "/api/v1/me").StatusCode)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	app, mr := newLimitedApp(t, testLimits())
	mr.Close()

	for range 3 {
		assert.Equal(t, fiber.StatusCreated, do(t, app, fiber.MethodPost, "/api/v1/urls").StatusCode)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	cfg := testLimits()
	cfg.Enabled = false
	app, _ := newLimitedApp(t, cfg)

	for range 4 {
		assert.Equal(t, fiber.StatusCreated, do(t, app, fiber.MethodPost, "/api/v1/urls").StatusCode)
	}

	var nilLimiter *RateLimitMiddleware
	assert.True(t, nilLimiter.disabled())
	assert.True(t, NewRateLimitMiddleware(nil, testLimits()).disabled())
}

func TestRateLimit_LongestPrefixWins(t *testing.T) {
	m := NewRateLimitMiddleware(nil, testLimits())
	m.rules = append(m.rules, RateLimitRule{PathPrefix: "/api/v1/auth", Limit: 100, Window: time.Minute, Prefix: "ratelimit"})

	rule, ok := m.match(fiber.MethodPost, "/api/v1/auth/login")
	require.True(t, ok)
	assert.Equal(t, "/api/v1/auth/login", rule.PathPrefix)

	rule, ok = m.match(fiber.MethodPost, "/api/v1/auth/refresh")
	require.True(t, ok)
	assert.Equal(t, "/api/v1/auth", rule.PathPrefix)

	_, ok = m.match(fiber.MethodGet, "/api/v1/urls/abc123")
	assert.False(t, ok)
	_, ok = m.match(fiber.MethodPost, "/api/v1/urlsx")
	assert.False(t, ok)
}
