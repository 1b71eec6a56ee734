package middleware

import (
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/app/services"
	"github.com/amirphl/shorty/config"
	"github.com/amirphl/shorty/utils"
	"github.com/gofiber/fiber/v3"
)

// RateLimitRule limits one endpoint family. Method is optional. A rule with Creation set
// uses the limiter's URL creation window instead of Limit and Window.
type RateLimitRule struct {
	Method     string
	PathPrefix string
	Limit      int
	Window     time.Duration
	Prefix     string
	Creation   bool
}

// RateLimitMiddleware applies the sliding window limiter per client IP, per endpoint rule
// and per authenticated user
type RateLimitMiddleware struct {
	limiter     services.RateLimiter
	cfg         config.RateLimitConfig
	rules       []RateLimitRule
	exemptPaths []string
}

func NewRateLimitMiddleware(limiter services.RateLimiter, cfg config.RateLimitConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		cfg:     cfg,
		rules: []RateLimitRule{
			{Method: fiber.MethodPost, PathPrefix: "/api/v1/urls", Creation: true},
			{PathPrefix: "/api/v1/auth/register", Limit: cfg.RegisterLimit, Window: cfg.AuthWindow, Prefix: services.MakeKey(utils.RateLimitPrefixEndpoint, "register")},
			{PathPrefix: "/api/v1/auth/login", Limit: cfg.LoginLimit, Window: cfg.AuthWindow, Prefix: services.MakeKey(utils.RateLimitPrefixEndpoint, "login")},
		},
		exemptPaths: []string{"/health", "/metrics", "/swagger", "/api/v1/docs", "/api/v1/swagger.json"},
	}
}

func (m *RateLimitMiddleware) disabled() bool {
	return m == nil || m.limiter == nil || !m.cfg.Enabled
}

func (m *RateLimitMiddleware) exempt(path string) bool {
	for _, p := range m.exemptPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// match returns the rule with the longest matching prefix
func (m *RateLimitMiddleware) match(method, path string) (RateLimitRule, bool) {
	var best RateLimitRule
	found := false
	for _, r := range m.rules {
		if r.Method != "" && r.Method != method {
			continue
		}
		if path != r.PathPrefix && !strings.HasPrefix(path, r.PathPrefix+"/") {
			continue
		}
		if !found || len(r.PathPrefix) > len(best.PathPrefix) {
			best, found = r, true
		}
	}
	return best, found
}

// Handler limits by client IP, or by the endpoint rule when one matches
func (m *RateLimitMiddleware) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m.disabled() || m.exempt(c.Path()) {
			return c.Next()
		}

		ip := c.IP()
		var (
			result services.RateLimitResult
			err    error
		)
		rule, ok := m.match(c.Method(), c.Path())
		switch {
		case !ok:
			result, err = m.limiter.CheckIP(c.Context(), ip)
		case rule.Creation:
			result, err = m.limiter.CheckURLCreation(c.Context(), ip)
		default:
			result, err = m.limiter.Check(c.Context(), ip, rule.Limit, rule.Window, rule.Prefix)
		}
		return m.apply(c, result, err)
	}
}

// UserHandler limits authenticated users; it must run after AuthMiddleware
func (m *RateLimitMiddleware) UserHandler() fiber.Handler {
	return func(c fiber.Ctx) error {
		if m.disabled() {
			return c.Next()
		}
		userID, ok := GetUserIDFromContext(c)
		if !ok {
			return c.Next()
		}
		result, err := m.limiter.CheckUser(c.Context(), userID)
		return m.apply(c, result, err)
	}
}

func (m *RateLimitMiddleware) apply(c fiber.Ctx, result services.RateLimitResult, err error) error {
	if err != nil {
		// fail open
		log.Printf("Rate limiter unavailable for %s %s: %v", c.Method(), c.Path(), err)
		return c.Next()
	}

	c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

	if result.Allowed {
		return c.Next()
	}

	retryAfter := max(int(math.Ceil(result.RetryAfter.Seconds())), 1)
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code:    "RATE_LIMIT_EXCEEDED",
			Details: fiber.Map{"retry_after": retryAfter},
		},
	})
}
