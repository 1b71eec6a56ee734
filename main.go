// Package main provides the entry point for the shorty URL shortener
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/shorty/app/handlers"
	"github.com/amirphl/shorty/app/middleware"
	"github.com/amirphl/shorty/app/router"
	"github.com/amirphl/shorty/app/scheduler"
	"github.com/amirphl/shorty/app/services"
	businessflow "github.com/amirphl/shorty/business_flow"
	"github.com/amirphl/shorty/config"
	"github.com/amirphl/shorty/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
	closers   []func() error
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	closeLog := setupLogging(cfg.Logging)
	defer closeLog()

	log.Printf("Starting shorty %s (%s)", cfg.Deployment.Version, cfg.Deployment.Environment)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting requests before draining the click queue so no redirect
	// enqueues into a stopped recorder.
	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	for _, fn := range app.stopFuncs {
		fn()
	}

	for _, closeFn := range app.closers {
		if err := closeFn(); err != nil {
			log.Printf("Error closing resource: %v", err)
		}
	}

	log.Println("Server stopped")
}

// setupLogging routes the standard logger to stdout, a rotated file or both
func setupLogging(cfg config.LoggingConfig) func() {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)

	if cfg.Output != "file" && cfg.Output != "both" {
		log.SetOutput(os.Stdout)
		return func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var out io.Writer = rotator
	if cfg.Output == "both" {
		out = io.MultiWriter(os.Stdout, rotator)
	}
	log.SetOutput(out)

	return func() {
		_ = rotator.Close()
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := cfg.DSN()

	if cfg.RunMigrations {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		applied, err := repository.RunMigrations(ctx, dsn, cfg.MigrationsPath)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Printf("Applied %d database migrations from %s", applied, cfg.MigrationsPath)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(log.Default(), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.OperationTimeout > 0 {
		opt.ReadTimeout = cfg.OperationTimeout
		opt.WriteTimeout = cfg.OperationTimeout
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()
	var closers []func() error

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	closers = append(closers, sqlDB.Close)

	healthChecks := map[string]handlers.HealthCheck{
		"database": sqlDB.PingContext,
	}

	// Redis backs both the link cache and the rate limiter. When it is
	// unreachable the service keeps running: lookups go straight to the
	// database and the router falls back to an in-process limiter.
	cache := services.NewNoopCacheService()
	var limiter services.RateLimiter

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		log.Printf("Redis unavailable, continuing without cache: %v", err)
	}
	if rc != nil {
		cache = services.NewRedisCacheService(rc, cfg.Cache.RedisPrefix)
		limiter = services.NewRedisRateLimiter(rc, cfg.RateLimit, nil)
		healthChecks["redis"] = func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		}
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthInterval))
		closers = append(closers, rc.Close)
	}

	shortLinkRepo := repository.NewShortLinkRepository(db)
	clickRepo := repository.NewClickEventRepository(db)
	userRepo := repository.NewUserRepository(db)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	codes := services.NewCodeGenerator(cfg.Shortener.ShortCodeLength, nil)

	clickQueue := scheduler.NewClickQueue(
		clickRepo,
		cfg.Shortener.ClickQueueSize,
		cfg.Shortener.ClickWorkers,
		cfg.Shortener.ClickWriteTimeout,
	)
	stopFuncs = append(stopFuncs, clickQueue.Start(context.Background()))

	redirectFlow := businessflow.NewRedirectFlow(
		shortLinkRepo,
		cache,
		codes,
		clickQueue,
		cfg.Cache.DefaultTTL,
		cfg.Shortener.BaseURL,
	)
	shortLinkFlow := businessflow.NewShortLinkFlow(
		shortLinkRepo,
		clickRepo,
		cache,
		codes,
		cfg.Shortener,
	)
	authFlow := businessflow.NewAuthFlow(userRepo, tokenService, cfg.Security)

	shortLinkHandler := handlers.NewShortLinkHandler(redirectFlow, shortLinkFlow)
	authHandler := handlers.NewAuthHandler(authFlow)
	healthHandler := handlers.NewHealthHandler(cfg.Deployment.Version, healthChecks)

	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	var rateLimit *middleware.RateLimitMiddleware
	if limiter != nil {
		rateLimit = middleware.NewRateLimitMiddleware(limiter, cfg.RateLimit)
	}

	appRouter := router.NewFiberRouter(
		cfg,
		shortLinkHandler,
		authHandler,
		healthHandler,
		authMiddleware,
		rateLimit,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	return &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
		closers:   closers,
	}, nil
}
