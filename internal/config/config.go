package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the portal gateway and CLI.
type Config struct {
	App      AppConfig
	API      APIConfig
	Session  SessionConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
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

// APIConfig points at the upstream portal REST API.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// SessionConfig selects where identities are persisted.
type SessionConfig struct {
	// Backend is one of "file", "redis", "postgres" or "memory".
	Backend        string
	FilePath       string
	SealKey        string
	CookieName     string
	CookieSecure   bool
	IdleTTLMinutes int
	ReapSeconds    int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTLHours int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := getEnv("SESSION_BACKEND", "memory")
	switch backend {
	case "memory", "file", "redis", "postgres":
	default:
		return nil, fmt.Errorf("invalid SESSION_BACKEND %q", backend)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		API: APIConfig{
			BaseURL:        getEnv("PORTAL_API_BASE_URL", "http://127.0.0.1:5000"),
			TimeoutSeconds: getEnvAsInt("PORTAL_API_TIMEOUT_SECONDS", 15),
		},
		Session: SessionConfig{
			Backend:        backend,
			FilePath:       getEnv("SESSION_FILE", DefaultSessionFile()),
			SealKey:        os.Getenv("SESSION_SEAL_KEY"),
			CookieName:     getEnv("SESSION_COOKIE_NAME", "portal_sid"),
			CookieSecure:   getEnvAsBool("SESSION_COOKIE_SECURE", false),
			IdleTTLMinutes: getEnvAsInt("SESSION_IDLE_TTL_MINUTES", 30),
			ReapSeconds:    getEnvAsInt("SESSION_REAP_INTERVAL_SECONDS", 60),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			TTLHours: getEnvAsInt("REDIS_SESSION_TTL_HOURS", 24),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
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

// Timeout returns the upstream HTTP client timeout; zero leaves the client default.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// IdleTTL returns how long an unused gateway session stays in memory.
func (s SessionConfig) IdleTTL() time.Duration {
	if s.IdleTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.IdleTTLMinutes) * time.Minute
}

// ReapInterval returns how often idle sessions are evicted.
func (s SessionConfig) ReapInterval() time.Duration {
	if s.ReapSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.ReapSeconds) * time.Second
}

// TTL returns the expiry applied to identities stored in Redis.
func (r RedisConfig) TTL() time.Duration {
	if r.TTLHours <= 0 {
		return 0
	}
	return time.Duration(r.TTLHours) * time.Hour
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
