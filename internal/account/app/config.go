package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	SigningSecret  string        // Required: HMAC secret for bearer and reset tokens
	BearerTTL      time.Duration // Optional: bearer token lifetime (default: 30m)
	ResetTTL       time.Duration // Optional: reset token lifetime (default: 48h)
	HashWorkFactor int           // Optional: argon2id time cost (default: 2)

	DatabaseFile        string        // Optional: path to SQLite database file (default: ./accountd.db)
	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)

	FirstSuperuser         string // Optional: email of the bootstrap superuser
	FirstSuperuserPassword string // Required when FirstSuperuser is set

	FrontendURL   string // Base URL for links in outgoing email (default: http://localhost:5173)
	EmailsEnabled bool   // Optional: deliver email via SMTP instead of logging (default: false)
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFrom      string

	StorageProvider string // Optional: "s3" or "cos"; empty disables presign endpoints
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3UsePathStyle  bool
	PresignTTL      time.Duration // Optional: presigned URL lifetime (default: 15m)
}

func LoadConfig() Config {
	return Config{
		SigningSecret:  os.Getenv("SIGNING_SECRET"),
		BearerTTL:      time.Duration(getEnvIntOrDefault("BEARER_TOKEN_TTL_MINUTES", 30)) * time.Minute,
		ResetTTL:       time.Duration(getEnvIntOrDefault("RESET_TOKEN_TTL_HOURS", 48)) * time.Hour,
		HashWorkFactor: getEnvIntOrDefault("HASH_WORK_FACTOR", 2),

		DatabaseFile:        getEnvOrDefault("DATABASE_FILE", "accountd.db"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		FirstSuperuser:         os.Getenv("FIRST_SUPERUSER"),
		FirstSuperuserPassword: os.Getenv("FIRST_SUPERUSER_PASSWORD"),

		FrontendURL:   getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		EmailsEnabled: getEnvBoolOrDefault("EMAILS_ENABLED", false),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:      os.Getenv("SMTP_FROM"),

		StorageProvider: os.Getenv("STORAGE_PROVIDER"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        os.Getenv("S3_REGION"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3UsePathStyle:  getEnvBoolOrDefault("S3_USE_PATH_STYLE", false),
		PresignTTL:      getEnvDurationOrDefault("PRESIGN_TTL", 15*time.Minute),
	}
}

// Validate catches configuration the service cannot start with. It never
// echoes secret values back in errors.
func (cfg Config) Validate() error {
	if cfg.SigningSecret == "" {
		return errors.New("SIGNING_SECRET is required")
	}
	if cfg.FirstSuperuser != "" && cfg.FirstSuperuserPassword == "" {
		return errors.New("FIRST_SUPERUSER_PASSWORD is required when FIRST_SUPERUSER is set")
	}
	if cfg.EmailsEnabled && cfg.SMTPHost == "" {
		return errors.New("SMTP_HOST is required when EMAILS_ENABLED is true")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
