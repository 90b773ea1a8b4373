package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Database     DatabaseConfig
	Server       ServerConfig
	Auth         AuthConfig
	Complaints   ComplaintsConfig
	Redis        RedisConfig
	Broker       BrokerConfig
	Email        EmailConfig
	Notification NotificationWorkerConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DatabaseURL string // DATABASE_URL (a MySQL DSN) - takes precedence over individual vars
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// ComplaintsConfig holds complaint numbering and upload settings
type ComplaintsConfig struct {
	IDPrefix       string // COMPLAINT_ID_PREFIX, leading part of complaint numbers
	UploadDir      string
	MaxUploadBytes int64
}

// RedisConfig holds the realtime notification channel settings. Empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BrokerConfig holds RabbitMQ settings for lifecycle events. Empty URL disables publishing.
type BrokerConfig struct {
	URL   string
	Queue string
}

// EmailConfig holds SendGrid settings. Without an API key emails are not sent.
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	ShadowAddress  string // EMAIL_MODE=shadow sends every email here instead
}

// NotificationWorkerConfig holds delivery worker and retry settings
type NotificationWorkerConfig struct {
	Enabled           bool
	Interval          time.Duration
	BatchSize         int
	MaxRetries        int
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	BackoffMultiplier float64
}

// LoadConfig loads configuration from environment variables.
// Supports DATABASE_URL or individual DB_* variables (for local dev).
func LoadConfig() *Config {
	shadow := ""
	if os.Getenv("EMAIL_MODE") == "shadow" {
		shadow = getEnv("EMAIL_SHADOW_ADDRESS", "")
	}

	return &Config{
		Database: DatabaseConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "3306"),
			User:        getEnv("DB_USER", "root"),
			Password:    os.Getenv("DB_PASSWORD"),
			DBName:      getEnv("DB_NAME", "citizenone"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("PORT", getEnv("SERVER_PORT", "8080")),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Complaints: ComplaintsConfig{
			IDPrefix:       getEnv("COMPLAINT_ID_PREFIX", "CMP"),
			UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Broker: BrokerConfig{
			URL:   os.Getenv("RABBITMQ_URL"),
			Queue: getEnv("RABBITMQ_QUEUE", "complaint.events"),
		},
		Email: EmailConfig{
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			FromEmail:      getEnv("SENDGRID_FROM_EMAIL", "noreply@citizenone.local"),
			FromName:       getEnv("SENDGRID_FROM_NAME", "CitizenOne"),
			ShadowAddress:  shadow,
		},
		Notification: NotificationWorkerConfig{
			Enabled:           getEnvBool("NOTIFICATION_WORKER_ENABLED", true),
			Interval:          getEnvDuration("NOTIFICATION_WORKER_INTERVAL", 30*time.Second),
			BatchSize:         getEnvInt("NOTIFICATION_WORKER_BATCH_SIZE", 100),
			MaxRetries:        getEnvInt("NOTIFICATION_MAX_RETRIES", 3),
			InitialRetryDelay: getEnvDuration("NOTIFICATION_RETRY_INITIAL_DELAY", time.Minute),
			MaxRetryDelay:     getEnvDuration("NOTIFICATION_RETRY_MAX_DELAY", 30*time.Minute),
			BackoffMultiplier: getEnvFloat("NOTIFICATION_RETRY_BACKOFF", 2.0),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration (e.g. "30s", "24h") or returns a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
