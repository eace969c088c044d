package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
	JWT       JWTConfig
	Site      SiteConfig
	Realtime  RealtimeConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        int
	Environment string // development, staging, production
	ServiceName string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PoolSize int
	Timeout  time.Duration
	// UseBroker routes broadcast groups through Redis pub/sub; otherwise
	// an in-process hub is used.
	UseBroker bool
	// UseCache stores derived aggregates in Redis; otherwise an in-process
	// TTL map is used.
	UseCache bool
}

// SMTPConfig holds outgoing mail configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	ConfirmTokenExpiry time.Duration
}

// SiteConfig holds public URL configuration
type SiteConfig struct {
	URL      string
	FrontURL string
}

// RealtimeConfig holds WebSocket gateway configuration
type RealtimeConfig struct {
	MaxMessageSize int
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	EnableDailyDigest bool
	DailyDigestCron   string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
	Path   string
}

// Load loads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("PORT", 8080),
			Environment: getEnv("ENV", "development"),
			ServiceName: getEnv("SERVICE_NAME", "eventplanner"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/eventplanner?sslmode=disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
			PoolSize:  getEnvAsInt("REDIS_POOL_SIZE", 10),
			Timeout:   time.Duration(getEnvAsInt("REDIS_TIMEOUT", 5)) * time.Second,
			UseBroker: getEnvAsBool("USE_REDIS_BROKER", false),
			UseCache:  getEnvAsBool("USE_REDIS_CACHE", false),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("DEFAULT_FROM_EMAIL", "noreply@eventplanner.local"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("SECRET_KEY", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_EXPIRY_MINUTES", 15)) * time.Minute,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_EXPIRY_HOURS", 720)) * time.Hour,
			ConfirmTokenExpiry: time.Duration(getEnvAsInt("CONFIRM_TOKEN_EXPIRY_HOURS", 48)) * time.Hour,
		},
		Site: SiteConfig{
			URL:      getEnv("SITE_URL", "http://localhost:8080"),
			FrontURL: getEnv("SITE_FRONT_URL", "http://localhost:3000"),
		},
		Realtime: RealtimeConfig{
			MaxMessageSize: getEnvAsInt("WS_MAX_MESSAGE_SIZE", 64*1024),
		},
		Scheduler: SchedulerConfig{
			EnableDailyDigest: getEnvAsBool("ENABLE_DAILY_DIGEST", false),
			DailyDigestCron:   getEnv("DAILY_DIGEST_CRON", "0 7 * * *"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
			Path:   getEnv("LOG_FILE_PATH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("SECRET_KEY must be set")
	}
	if c.Server.Environment == "production" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("SECRET_KEY must be at least 32 characters in production")
	}
	if c.Realtime.MaxMessageSize <= 0 {
		return fmt.Errorf("WS_MAX_MESSAGE_SIZE must be positive")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
