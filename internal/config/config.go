package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service. It is built
// once at startup and passed explicitly; there are no ambient globals.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Feedback  FeedbackConfig
	Caretaker CaretakerConfig
	Mailgun   MailgunConfig
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
	Level    string
	Encoding string
}

// AuthConfig holds the shared secret clients present as their basic-auth
// password. Requests cannot be authenticated while it is unset.
type AuthConfig struct {
	SenderAuthToken string
}

// FeedbackConfig bounds feedback intake.
type FeedbackConfig struct {
	MaxPendingSubmits int
	MaxUploads        int
	MaxUploadSize     int
	Queue             string
}

// CaretakerConfig controls the reconciliation sweep windows.
type CaretakerConfig struct {
	KeepHistoryDays     int
	RepublishAfterHours int
	ReapDraftsAfterMins int
}

// MailgunConfig holds outbound email transport settings.
type MailgunConfig struct {
	APIBase   string
	APIDomain string
	APIKey    string
	Sender    string
	Recipient string
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
			Name:                  getEnv("APP_NAME", "feedback-service"),
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
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Auth: AuthConfig{
			SenderAuthToken: os.Getenv("FEEDBACK_SENDER_AUTHTOKEN"),
		},
		Feedback: FeedbackConfig{
			MaxPendingSubmits: getEnvAsInt("FEEDBACK_MAX_PENDING", 5),
			MaxUploads:        getEnvAsInt("FEEDBACK_MAX_UPLOADS", 10),
			MaxUploadSize:     getEnvAsInt("FEEDBACK_MAX_UPLOAD_SIZE", 1<<20),
			Queue:             getEnv("FEEDBACK_QUEUE", "fmpfeedback"),
		},
		Caretaker: CaretakerConfig{
			KeepHistoryDays:     getEnvAsInt("CARETAKER_KEEP_HISTORY", 30),
			RepublishAfterHours: getEnvAsInt("CARETAKER_REPUBLISH_AFTER", 24),
			ReapDraftsAfterMins: getEnvAsInt("CARETAKER_REAP_DRAFTS_AFTER", 5),
		},
		Mailgun: MailgunConfig{
			APIBase:   getEnv("MAILGUN_API_BASE", "https://api.mailgun.net"),
			APIDomain: os.Getenv("MAILGUN_API_DOMAIN"),
			APIKey:    os.Getenv("MAILGUN_API_KEY"),
			Sender:    os.Getenv("MAILGUN_SENDER"),
			Recipient: os.Getenv("MAILGUN_RECIPIENT"),
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

// KeepHistory returns the archive retention window.
func (c CaretakerConfig) KeepHistory() time.Duration {
	return time.Duration(c.KeepHistoryDays) * 24 * time.Hour
}

// RepublishAfter returns the age past which a finalized but unarchived
// record is considered stuck.
func (c CaretakerConfig) RepublishAfter() time.Duration {
	return time.Duration(c.RepublishAfterHours) * time.Hour
}

// ReapDraftsAfter returns the grace window for abandoned drafts.
func (c CaretakerConfig) ReapDraftsAfter() time.Duration {
	return time.Duration(c.ReapDraftsAfterMins) * time.Minute
}

// Configured reports whether every Mailgun setting required to send is present.
func (m MailgunConfig) Configured() bool {
	return m.APIDomain != "" && m.APIKey != "" && m.Sender != "" && m.Recipient != ""
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
