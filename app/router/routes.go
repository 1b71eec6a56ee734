// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/amirphl/shorty/app/dto"
	"github.com/amirphl/shorty/app/handlers"
	"github.com/amirphl/shorty/app/middleware"
	"github.com/amirphl/shorty/config"
	"github.com/amirphl/shorty/docs"
	"github.com/amirphl/shorty/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app              *fiber.App
	cfg              *config.ProductionConfig
	shortLinkHandler handlers.ShortLinkHandlerInterface
	authHandler      handlers.AuthHandlerInterface
	healthHandler    handlers.HealthHandlerInterface
	authMiddleware   *middleware.AuthMiddleware
	rateLimit        *middleware.RateLimitMiddleware
}

// NewFiberRouter creates a new Fiber router. rateLimit may be nil when Redis is unavailable;
// requests are then limited per process by the in-memory limiter.
func NewFiberRouter(
	cfg *config.ProductionConfig,
	shortLinkHandler handlers.ShortLinkHandlerInterface,
	authHandler handlers.AuthHandlerInterface,
	healthHandler handlers.HealthHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
	rateLimit *middleware.RateLimitMiddleware,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "shorty",
		ServerHeader: "shorty",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})

	return &FiberRouter{
		app:              app,
		cfg:              cfg,
		shortLinkHandler: shortLinkHandler,
		authHandler:      authHandler,
		healthHandler:    healthHandler,
		authMiddleware:   authMiddleware,
		rateLimit:        rateLimit,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	// Health and metrics are registered before the catch-all redirect route
	r.app.Get("/health", r.healthHandler.Health)
	r.app.Get("/health/live", r.healthHandler.Live)
	r.app.Get("/health/ready", r.healthHandler.Ready)
	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	if r.cfg.Deployment.Environment == "development" || r.cfg.Deployment.Environment == "local" {
		api.Get("/swagger.json", r.serveSwaggerJSON)
		r.app.Get("/swagger", r.serveSwaggerUI)
		log.Println("API documentation enabled for development")
	}

	auth := api.Group("/auth")
	auth.Post("/register", r.authHandler.Register)
	auth.Post("/login", r.authHandler.Login)
	auth.Post("/refresh", r.authHandler.Refresh)

	urls := api.Group("/urls")
	urls.Post("/", r.authMiddleware.OptionalAuth(), r.userLimit(), r.shortLinkHandler.Create)
	urls.Get("/:code", r.shortLinkHandler.Info)

	urls.Get("/", r.authMiddleware.Authenticate(), r.userLimit(), r.shortLinkHandler.List)
	urls.Get("/:code/stats", r.authMiddleware.Authenticate(), r.userLimit(), r.shortLinkHandler.Stats)
	urls.Get("/:code/clicks/export", r.authMiddleware.Authenticate(), r.userLimit(), r.shortLinkHandler.ExportClicks)
	urls.Delete("/:code", r.authMiddleware.Authenticate(), r.userLimit(), r.shortLinkHandler.Delete)

	r.app.Get("/:code", r.shortLinkHandler.Redirect)

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

func (r *FiberRouter) userLimit() fiber.Handler {
	if r.rateLimit == nil {
		return func(c fiber.Ctx) error { return c.Next() }
	}
	return r.rateLimit.UserHandler()
}

func (r *FiberRouter) setupMiddleware() {
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				requestid.FromContext(c),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))

	security := r.cfg.Security
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             security.XFrameOptions,
		HSTSMaxAge:                security.HSTSMaxAge,
		ContentSecurityPolicy:     security.CSPPolicy,
		ReferrerPolicy:            security.ReferrerPolicy,
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     security.AllowedOrigins,
		AllowMethods:     security.AllowedMethods,
		AllowHeaders:     security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: security.AllowCredentials,
		MaxAge:           security.CORSMaxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				// workbooks are already zip compressed
				return strings.HasSuffix(c.Path(), "/clicks/export")
			},
		}))
	}

	// Swagger JSON is static for the life of the process
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || c.Path() != "/api/v1/swagger.json"
		},
		Expiration:          30 * time.Minute,
		DisableCacheControl: false,
	}))

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","pid":"${pid}","request_id":"${respHeader:X-Request-ID}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return strings.HasPrefix(c.Path(), "/health")
			},
		}))
	}

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	if r.cfg.RateLimit.Enabled {
		if r.rateLimit != nil {
			r.app.Use(r.rateLimit.Handler())
		} else {
			r.app.Use(r.localLimiter())
		}
	}
}

// localLimiter is the per-process fallback used while Redis is unavailable
func (r *FiberRouter) localLimiter() fiber.Handler {
	log.Println("Redis rate limiter unavailable, falling back to in-memory IP limiting")
	return limiter.New(limiter.Config{
		Max:        r.cfg.RateLimit.IPLimit,
		Expiration: r.cfg.RateLimit.IPWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/health") || c.Path() == r.cfg.Metrics.Path
		},
	})
}

func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(docs.SwaggerInfo.ReadDoc())
}

func (r *FiberRouter) serveSwaggerUI(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(swaggerUIPage)
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errorCode := "INTERNAL_ERROR"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errorCode = "REQUEST_ERROR"
		}
	}

	log.Printf("Error %d: %v", code, err)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errorCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>shorty API - Swagger UI</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({ url: '/api/v1/swagger.json', dom_id: '#swagger-ui', deepLinking: true });
        };
    </script>
</body>
</html>`
