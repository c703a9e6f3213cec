package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ModeDemo is the only backend mode this build implements: every read, write
// and auth call is served by the embedded emulation.
const ModeDemo = "demo"

// Config holds application configuration loaded from environment.
type Config struct {
	Mode     string
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	AWS      AWSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	PublicURL          string // base URL clients reach this server at
}

// StoreConfig selects the durable medium behind the key-value adapter.
type StoreConfig struct {
	Medium    string // memory, redis or postgres
	KeyPrefix string // namespace for every stored key, e.g. demo_
}

// DatabaseConfig holds PostgreSQL connection settings for the postgres medium.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings for the redis medium and the
// auth event bridge.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// AuthEvents relays auth transitions through Redis pub/sub even when the
	// medium is not redis.
	AuthEvents bool
}

// AuthConfig holds session simulator settings.
type AuthConfig struct {
	SessionTTLHours int
	JWTSecret       string
	VerifyPasswords bool // off in demo: any non-empty password signs in
}

// AWSConfig holds credentials and the bucket used for avatar uploads.
// An empty AvatarsBucket keeps avatars in process memory. PublicBaseURL
// replaces the S3 URL of uploaded objects, e.g. with a CDN.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	AvatarsBucket   string
	PublicBaseURL   string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// SessionTTL returns the configured session lifetime.
func (c AuthConfig) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Mode: strings.ToLower(getEnv("BACKEND_MODE", ModeDemo)),
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			PublicURL:          getEnv("PUBLIC_URL", "http://localhost:8080"),
		},
		Store: StoreConfig{
			Medium:    strings.ToLower(getEnv("STORE_MEDIUM", "memory")),
			KeyPrefix: getEnv("STORE_KEY_PREFIX", "demo_"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "evently"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			AuthEvents: getEnvBool("REDIS_AUTH_EVENTS", false),
		},
		Auth: AuthConfig{
			SessionTTLHours: getEnvInt("SESSION_TTL_HOURS", 7*24),
			JWTSecret:       getEnv("JWT_SECRET", "change-me-in-production"),
			VerifyPasswords: getEnvBool("AUTH_VERIFY_PASSWORDS", false),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AvatarsBucket:   getEnv("AWS_S3_AVATARS_BUCKET", ""),
			PublicBaseURL:   getEnv("STORAGE_PUBLIC_BASE_URL", ""),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings this build cannot serve.
func (c *Config) Validate() error {
	if c.Mode != ModeDemo {
		return fmt.Errorf("backend mode %q is not supported by this build", c.Mode)
	}
	switch c.Store.Medium {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown store medium %q", c.Store.Medium)
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
