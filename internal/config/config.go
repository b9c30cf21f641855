package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Categories   CategoryConfig
	Events       EventsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds notification endpoints for the dispatcher stubs.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// CategorySeed is one entry of the bootstrap category list.
type CategorySeed struct {
	Name        string
	Description string
	Color       string
}

// CategoryConfig drives the idempotent category seeding at startup and
// the read-through cache in front of the directory.
type CategoryConfig struct {
	Seed            []CategorySeed
	CacheTTLSeconds int
}

// EventsConfig sizes the outbound event queue.
type EventsConfig struct {
	QueueSize int
}

// defaultCategorySeed matches the reference deployment's fixed set.
var defaultCategorySeed = []CategorySeed{
	{Name: "Technical", Description: "Technical issues and questions", Color: "#3B82F6"},
	{Name: "Billing", Description: "Billing and payment related issues", Color: "#10B981"},
	{Name: "General", Description: "General questions and support", Color: "#F59E0B"},
	{Name: "Feature Request", Description: "Requests for new features", Color: "#8B5CF6"},
	{Name: "Bug Report", Description: "Bug reports and issues", Color: "#EF4444"},
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Categories: CategoryConfig{
			Seed:            parseCategorySeed(os.Getenv("CATEGORY_SEED")),
			CacheTTLSeconds: getEnvAsInt("CATEGORY_CACHE_TTL_SECONDS", 300),
		},
		Events: EventsConfig{
			QueueSize: getEnvAsInt("EVENT_QUEUE_SIZE", 256),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns the category cache TTL duration.
func (c CategoryConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// parseCategorySeed parses "Name:#color,Name:#color" pairs; an empty or
// malformed value falls back to the default seed list.
func parseCategorySeed(raw string) []CategorySeed {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultCategorySeed
	}
	var seed []CategorySeed
	for _, pair := range strings.Split(raw, ",") {
		name, color, found := strings.Cut(strings.TrimSpace(pair), ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		entry := CategorySeed{Name: name}
		if found {
			entry.Color = strings.TrimSpace(color)
		}
		seed = append(seed, entry)
	}
	if len(seed) == 0 {
		return defaultCategorySeed
	}
	return seed
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
