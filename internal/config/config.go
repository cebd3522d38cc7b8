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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Voucher      VoucherConfig
	DailyRun     DailyRunConfig
	Templates    Templates
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	Timezone              string
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
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	StaffPasswordHash     string
	DailyRunSecret        string
}

// NotificationConfig holds outbound channel credentials and the retry policy.
type NotificationConfig struct {
	MailerSendAPIKey      string
	MailerSendEndpoint    string
	MailerSendSender      string
	MailerSendSenderName  string
	MailerSendSubject     string
	CellCastAPIKey        string
	CellCastEndpoint      string
	CellCastSenderID      string
	MaxAttempts           int
	BackoffBase           int
	AttemptTimeoutSeconds int
	RatePerMinute         int
	PhonePattern          string
}

// VoucherConfig controls voucher code format and artifact rendering.
type VoucherConfig struct {
	Prefix        string
	BaseImagePath string
	OutputDir     string
	PublicBaseURL string
}

// DailyRunConfig controls the daily lifecycle run.
type DailyRunConfig struct {
	Workers         int
	ScheduleEnabled bool
	ScheduleHour    int
	LockTTLSeconds  int
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
			Name:                  getEnv("APP_NAME", "loyalty-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 120),
			Timezone:              getEnv("APP_TIMEZONE", "UTC"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			StaffPasswordHash:     os.Getenv("STAFF_PASSWORD_HASH"),
			DailyRunSecret:        os.Getenv("WEBHOOK_SECRET_TOKEN"),
		},
		Notification: NotificationConfig{
			MailerSendAPIKey:      os.Getenv("MAILERSEND_API_KEY"),
			MailerSendEndpoint:    getEnv("MAILERSEND_ENDPOINT", "https://api.mailersend.com/v1/email"),
			MailerSendSender:      os.Getenv("MAILERSEND_SENDER"),
			MailerSendSenderName:  getEnv("MAILERSEND_SENDER_NAME", "Third Wave Cafe"),
			MailerSendSubject:     getEnv("MAILERSEND_SUBJECT", "Your Birthday Voucher"),
			CellCastAPIKey:        os.Getenv("CELLCAST_API_KEY"),
			CellCastEndpoint:      getEnv("CELLCAST_ENDPOINT", "https://cellcast.com.au/api/v3/send-sms-template"),
			CellCastSenderID:      os.Getenv("CELLCAST_SENDER_ID"),
			MaxAttempts:           getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
			BackoffBase:           getEnvAsInt("NOTIFY_BACKOFF_BASE_SECONDS", 2),
			AttemptTimeoutSeconds: getEnvAsInt("NOTIFY_ATTEMPT_TIMEOUT_SECONDS", 10),
			RatePerMinute:         getEnvAsInt("NOTIFY_RATE_PER_MINUTE", 0),
			PhonePattern:          getEnv("CONTACT_PHONE_PATTERN", `^\+?61\d{9}$`),
		},
		Voucher: VoucherConfig{
			Prefix:        getEnv("VOUCHER_PREFIX", "TWC"),
			BaseImagePath: os.Getenv("VOUCHER_BASE_IMAGE"),
			OutputDir:     getEnv("VOUCHER_OUTPUT_DIR", "vouchers"),
			PublicBaseURL: getEnv("VOUCHER_PUBLIC_BASE_URL", "http://localhost:8080/images"),
		},
		DailyRun: DailyRunConfig{
			Workers:         getEnvAsInt("DAILY_RUN_WORKERS", 1),
			ScheduleEnabled: getEnvAsBool("DAILY_RUN_SCHEDULE_ENABLED", false),
			ScheduleHour:    getEnvAsInt("DAILY_RUN_SCHEDULE_HOUR", 9),
			LockTTLSeconds:  getEnvAsInt("DAILY_RUN_LOCK_TTL_SECONDS", 3600),
		},
	}

	templates, err := LoadTemplates(os.Getenv("TEMPLATES_FILE"))
	if err != nil {
		return nil, err
	}
	if err := templates.Validate(); err != nil {
		return nil, err
	}
	cfg.Templates = templates

	if _, err := cfg.App.Location(); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
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

// Location resolves the timezone used to decide "today".
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

// AttemptTimeout returns the per-attempt deadline for outbound channel calls.
func (n NotificationConfig) AttemptTimeout() time.Duration {
	if n.AttemptTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(n.AttemptTimeoutSeconds) * time.Second
}

// LockTTL returns how long a daily-run lease outlives a holder that stopped renewing it.
func (d DailyRunConfig) LockTTL() time.Duration {
	if d.LockTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(d.LockTTLSeconds) * time.Second
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
