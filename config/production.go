// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	RateLimit  RateLimitConfig  `json:"rate_limit"`
	Shortener  ShortenerConfig  `json:"shortener"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
	RunMigrations   bool          `json:"run_migrations"`
	MigrationsPath  string        `json:"migrations_path"`
}

// DSN returns the key/value connection string understood by both pgx and lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	BodyLimit         int           `json:"body_limit"`
	TrustedProxies    []string      `json:"trusted_proxies"`
	ProxyHeader       string        `json:"proxy_header"`
	EnableCompression bool          `json:"enable_compression"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Content Security
	HSTSMaxAge     int    `json:"hsts_max_age"`
	CSPPolicy      string `json:"csp_policy"`
	XFrameOptions  string `json:"x_frame_options"`
	ReferrerPolicy string `json:"referrer_policy"`

	// Password & Auth
	PasswordMinLength int `json:"password_min_length"`
	PasswordMaxLength int `json:"password_max_length"`
	BcryptCost        int `json:"bcrypt_cost"`
}

type JWTConfig struct {
	SecretKey       string        `json:"secret_key"`
	PrivateKey      string        `json:"private_key"`  // RSA private key in PEM format
	PublicKey       string        `json:"public_key"`   // RSA public key in PEM format
	UseRSAKeys      bool          `json:"use_rsa_keys"` // Whether to use RSA keys instead of secret key
	AccessTokenTTL  time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl"`
	Issuer          string        `json:"issuer"`
	Audience        string        `json:"audience"`
	Algorithm       string        `json:"algorithm"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, text
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`

	// Access Logs
	EnableAccessLog bool `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled          bool          `json:"enabled"`
	Provider         string        `json:"provider"` // redis, none
	RedisURL         string        `json:"redis_url"`
	RedisDB          int           `json:"redis_db"`
	RedisPrefix      string        `json:"redis_prefix"`
	DefaultTTL       time.Duration `json:"default_ttl"`
	PoolSize         int           `json:"pool_size"`
	HealthInterval   time.Duration `json:"health_interval"`
	OperationTimeout time.Duration `json:"operation_timeout"`
}

// RateLimitConfig holds the sliding window limits. Every window is expressed in seconds
// on the wire but kept as a duration here.
type RateLimitConfig struct {
	Enabled bool `json:"enabled"`

	IPLimit  int           `json:"ip_limit"`
	IPWindow time.Duration `json:"ip_window"`

	UserLimit  int           `json:"user_limit"`
	UserWindow time.Duration `json:"user_window"`

	URLCreationLimit  int           `json:"url_creation_limit"`
	URLCreationWindow time.Duration `json:"url_creation_window"`

	RegisterLimit int           `json:"register_limit"`
	LoginLimit    int           `json:"login_limit"`
	AuthWindow    time.Duration `json:"auth_window"`

	RetryAfter time.Duration `json:"retry_after"`
}

type ShortenerConfig struct {
	BaseURL           string        `json:"base_url"`
	ShortCodeLength   int           `json:"short_code_length"`
	MaxAttempts       int           `json:"max_attempts"`
	ClickQueueSize    int           `json:"click_queue_size"`
	ClickWorkers      int           `json:"click_workers"`
	ClickWriteTimeout time.Duration `json:"click_write_timeout"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "shorty"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
			RunMigrations:   getEnvBool("DB_RUN_MIGRATIONS", false),
			MigrationsPath:  getEnvString("DB_MIGRATIONS_PATH", "migrations"),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:    getEnvDuration("SERVER_REQUEST_TIMEOUT", 10*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024), // 1MB
			TrustedProxies:    getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:       getEnvString("SERVER_PROXY_HEADER", ""),
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
		},
		Security: SecurityConfig{
			AllowedOrigins:    getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:    getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders:    getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}),
			AllowCredentials:  getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:        getEnvInt("CORS_MAX_AGE", 86400),
			HSTSMaxAge:        getEnvInt("HSTS_MAX_AGE", 31536000), // 1 year
			CSPPolicy:         getEnvString("CSP_POLICY", "default-src 'self'; frame-ancestors 'none';"),
			XFrameOptions:     getEnvString("X_FRAME_OPTIONS", "DENY"),
			ReferrerPolicy:    getEnvString("REFERRER_POLICY", "strict-origin-when-cross-origin"),
			PasswordMinLength: getEnvInt("PASSWORD_MIN_LENGTH", 8),
			PasswordMaxLength: getEnvInt("PASSWORD_MAX_LENGTH", 72),
			BcryptCost:        getEnvInt("BCRYPT_COST", 12),
		},
		JWT: JWTConfig{
			SecretKey:       getEnvString("JWT_SECRET_KEY", ""),
			PrivateKey:      getEnvString("JWT_PRIVATE_KEY", ""),
			PublicKey:       getEnvString("JWT_PUBLIC_KEY", ""),
			UseRSAKeys:      getEnvBool("JWT_USE_RSA_KEYS", false),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour),
			Issuer:          getEnvString("JWT_ISSUER", "shorty"),
			Audience:        getEnvString("JWT_AUDIENCE", "shorty-api"),
			Algorithm:       getEnvString("JWT_ALGORITHM", "HS256"),
		},
		Logging: LoggingConfig{
			Level:           getEnvString("LOG_LEVEL", "info"),
			Format:          getEnvString("LOG_FORMAT", "json"),
			Output:          getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:        getEnvString("LOG_FILE_PATH", "/var/log/shorty/app.log"),
			MaxSize:         getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:      getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:          getEnvInt("LOG_MAX_AGE", 30),
			Compress:        getEnvBool("LOG_COMPRESS", true),
			EnableAccessLog: getEnvBool("LOG_ENABLE_ACCESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:          getEnvBool("CACHE_ENABLED", true),
			Provider:         getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:         getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:          getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:      getEnvString("CACHE_REDIS_PREFIX", ""),
			DefaultTTL:       getEnvDuration("CACHE_DEFAULT_TTL", 24*time.Hour),
			PoolSize:         getEnvInt("CACHE_POOL_SIZE", 20),
			HealthInterval:   getEnvDuration("CACHE_HEALTH_INTERVAL", 30*time.Second),
			OperationTimeout: getEnvDuration("CACHE_OPERATION_TIMEOUT", 500*time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvBool("RATE_LIMIT_ENABLED", true),
			IPLimit:           getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
			IPWindow:          getEnvDuration("RATE_LIMIT_IP_WINDOW", 60*time.Second),
			UserLimit:         getEnvInt("RATE_LIMIT_PER_HOUR", 1000),
			UserWindow:        getEnvDuration("RATE_LIMIT_USER_WINDOW", time.Hour),
			URLCreationLimit:  getEnvInt("URL_CREATION_LIMIT_PER_MINUTE", 20),
			URLCreationWindow: getEnvDuration("URL_CREATION_WINDOW", 60*time.Second),
			RegisterLimit:     getEnvInt("REGISTER_LIMIT_PER_MINUTE", 5),
			LoginLimit:        getEnvInt("LOGIN_LIMIT_PER_MINUTE", 10),
			AuthWindow:        getEnvDuration("AUTH_RATE_LIMIT_WINDOW", 60*time.Second),
			RetryAfter:        getEnvDuration("RATE_LIMIT_RETRY_AFTER", 60*time.Second),
		},
		Shortener: ShortenerConfig{
			BaseURL:           strings.TrimRight(getEnvString("BASE_URL", "http://localhost:8080"), "/"),
			ShortCodeLength:   getEnvInt("SHORT_CODE_LENGTH", 6),
			MaxAttempts:       getEnvInt("SHORT_CODE_MAX_ATTEMPTS", 10),
			ClickQueueSize:    getEnvInt("CLICK_QUEUE_SIZE", 1024),
			ClickWorkers:      getEnvInt("CLICK_WORKERS", 4),
			ClickWriteTimeout: getEnvDuration("CLICK_WRITE_TIMEOUT", 5*time.Second),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from the given file if it exists.
// Variables already present in the environment are not overridden.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s", "1h") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required")
	}

	// Validate JWT configuration
	if cfg.JWT.UseRSAKeys {
		if cfg.JWT.PrivateKey == "" || cfg.JWT.PublicKey == "" {
			errors = append(errors, "JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required when JWT_USE_RSA_KEYS is set")
		}
	} else {
		if cfg.JWT.SecretKey == "" {
			errors = append(errors, "JWT_SECRET_KEY is required")
		}
		if len(cfg.JWT.SecretKey) < 32 {
			errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
		}
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errors = append(errors, "JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.JWT.RefreshTokenTTL <= 0 {
		errors = append(errors, "JWT_REFRESH_TOKEN_TTL must be positive")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}

	// Validate security configuration
	if cfg.Security.PasswordMinLength < 6 {
		errors = append(errors, "PASSWORD_MIN_LENGTH must be at least 6")
	}
	if cfg.Security.PasswordMaxLength < cfg.Security.PasswordMinLength {
		errors = append(errors, "PASSWORD_MAX_LENGTH must not be below PASSWORD_MIN_LENGTH")
	}
	if cfg.Security.PasswordMaxLength > 72 {
		errors = append(errors, "PASSWORD_MAX_LENGTH must not exceed 72, the bcrypt input limit")
	}
	if cfg.Security.BcryptCost < 4 || cfg.Security.BcryptCost > 14 {
		errors = append(errors, "BCRYPT_COST must be between 4 and 14")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if strings.EqualFold(cfg.Logging.Level, level) {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}
	switch cfg.Logging.Output {
	case "stdout", "file", "both":
	default:
		errors = append(errors, "LOG_OUTPUT must be one of: stdout, file, both")
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errors = append(errors, "LOG_FILE_PATH is required when logging to a file")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
		if cfg.Cache.DefaultTTL <= 0 {
			errors = append(errors, "CACHE_DEFAULT_TTL must be positive")
		}
	}

	// Validate rate limits
	if cfg.RateLimit.Enabled {
		limits := map[string]int{
			"RATE_LIMIT_PER_MINUTE":         cfg.RateLimit.IPLimit,
			"RATE_LIMIT_PER_HOUR":           cfg.RateLimit.UserLimit,
			"URL_CREATION_LIMIT_PER_MINUTE": cfg.RateLimit.URLCreationLimit,
			"REGISTER_LIMIT_PER_MINUTE":     cfg.RateLimit.RegisterLimit,
			"LOGIN_LIMIT_PER_MINUTE":        cfg.RateLimit.LoginLimit,
		}
		for _, name := range []string{"RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_PER_HOUR", "URL_CREATION_LIMIT_PER_MINUTE", "REGISTER_LIMIT_PER_MINUTE", "LOGIN_LIMIT_PER_MINUTE"} {
			if limits[name] <= 0 {
				errors = append(errors, name+" must be positive")
			}
		}
		if cfg.RateLimit.IPWindow < time.Second || cfg.RateLimit.UserWindow < time.Second ||
			cfg.RateLimit.URLCreationWindow < time.Second || cfg.RateLimit.AuthWindow < time.Second {
			errors = append(errors, "rate limit windows must be at least one second")
		}
		if !cfg.Cache.Enabled || cfg.Cache.Provider != "redis" {
			errors = append(errors, "rate limiting requires the redis cache provider")
		}
	}

	// Validate shortener configuration
	if u, err := url.Parse(cfg.Shortener.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, "BASE_URL must be an absolute http(s) URL")
	}
	if cfg.Shortener.ShortCodeLength < 3 || cfg.Shortener.ShortCodeLength > 9 {
		// length+1 is used after collisions and must still be a valid code
		errors = append(errors, "SHORT_CODE_LENGTH must be between 3 and 9")
	}
	if cfg.Shortener.MaxAttempts <= 0 {
		errors = append(errors, "SHORT_CODE_MAX_ATTEMPTS must be positive")
	}
	if cfg.Shortener.ClickWorkers <= 0 {
		errors = append(errors, "CLICK_WORKERS must be positive")
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
