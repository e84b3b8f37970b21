package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the sync job reads from the environment.
type Config struct {
	DatabaseURL string

	SpacesEndpoint string
	SpacesKey      string
	SpacesSecret   string
	SpacesBucket   string
	SpacesUseSSL   bool

	CloudflareAccountID string
	CloudflareAPIToken  string

	ResendAPIKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Schedule string

	MaxAttempts  int
	RetryDelay   time.Duration
	PollInterval time.Duration
	PollCeiling  time.Duration

	StatusTimeout time.Duration
	UploadTimeout time.Duration

	LogLevel slog.Level
}

func Load() Config {
	logLevel := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	return Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		SpacesEndpoint: valueOrDefault(os.Getenv("SPACES_ENDPOINT"), "ams3.digitaloceanspaces.com"),
		SpacesKey:      os.Getenv("SPACES_KEY"),
		SpacesSecret:   os.Getenv("SPACES_SECRET"),
		SpacesBucket:   valueOrDefault(os.Getenv("SPACES_BUCKET"), "calebmateo"),
		SpacesUseSSL:   !strings.EqualFold(os.Getenv("SPACES_USE_SSL"), "false"),

		CloudflareAccountID: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		CloudflareAPIToken:  os.Getenv("CLOUDFLARE_API_TOKEN"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       parseInt(os.Getenv("REDIS_DB"), 0),

		Schedule: os.Getenv("SYNC_SCHEDULE"),

		MaxAttempts:  parseInt(os.Getenv("UPLOAD_MAX_ATTEMPTS"), 3),
		RetryDelay:   parseDuration(os.Getenv("UPLOAD_RETRY_DELAY"), 2*time.Second),
		PollInterval: parseDuration(os.Getenv("TRANSCODE_POLL_INTERVAL"), 20*time.Second),
		PollCeiling:  parseDuration(os.Getenv("TRANSCODE_POLL_CEILING"), 2*time.Minute),

		StatusTimeout: parseDuration(os.Getenv("CLOUDFLARE_STATUS_TIMEOUT"), 30*time.Second),
		UploadTimeout: parseDuration(os.Getenv("CLOUDFLARE_UPLOAD_TIMEOUT"), 10*time.Minute),

		LogLevel: logLevel,
	}
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
