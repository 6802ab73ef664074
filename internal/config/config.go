package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Intake   IntakeConfig
	Polling  PollingConfig
	Notify   NotifyConfig
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

// IntakeConfig tunes email classification and filtering.
type IntakeConfig struct {
	SpamFilterEnabled   bool
	FilterPromotions    bool
	LogFilteredMessages bool
	ModelEnabled        bool
	ModelTimeoutMillis  int
	DedupTTLHours       int
}

// PollingConfig controls the mailbox polling worker.
type PollingConfig struct {
	Enabled         bool
	IntervalSeconds int
	MaxPerPoll      int
	LookbackDays    int
}

// NotifyConfig holds notification endpoints.
type NotifyConfig struct {
	EmailFrom  string
	WebhookURL string
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
			Name:                  getEnv("APP_NAME", "helpdesk-intake"),
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
		Intake: IntakeConfig{
			SpamFilterEnabled:   getEnvAsBool("EMAIL_SPAM_FILTER_ENABLED", true),
			FilterPromotions:    getEnvAsBool("EMAIL_FILTER_PROMOTIONS", true),
			LogFilteredMessages: getEnvAsBool("EMAIL_LOG_FILTERED", true),
			ModelEnabled:        getEnvAsBool("EMAIL_MODEL_CLASSIFIER_ENABLED", true),
			ModelTimeoutMillis:  getEnvAsInt("EMAIL_MODEL_TIMEOUT_MILLIS", 500),
			DedupTTLHours:       getEnvAsInt("EMAIL_DEDUP_TTL_HOURS", 24),
		},
		Polling: PollingConfig{
			Enabled:         getEnvAsBool("EMAIL_POLLING_ENABLED", false),
			IntervalSeconds: getEnvAsInt("EMAIL_POLLING_INTERVAL_SECONDS", 60),
			MaxPerPoll:      getEnvAsInt("EMAIL_POLLING_MAX_PER_POLL", 50),
			LookbackDays:    getEnvAsInt("EMAIL_POLLING_LOOKBACK_DAYS", 7),
		},
		Notify: NotifyConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
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

// ModelTimeout returns the bounded timeout for statistical model calls.
func (i IntakeConfig) ModelTimeout() time.Duration {
	if i.ModelTimeoutMillis <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(i.ModelTimeoutMillis) * time.Millisecond
}

// DedupTTL returns how long ingested message ids stay in the fast-path cache.
func (i IntakeConfig) DedupTTL() time.Duration {
	if i.DedupTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(i.DedupTTLHours) * time.Hour
}

// Interval returns the polling cadence.
func (p PollingConfig) Interval() time.Duration {
	if p.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(p.IntervalSeconds) * time.Second
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
