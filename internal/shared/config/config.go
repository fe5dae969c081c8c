package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	DatabaseURL     string
	Env             string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string

	CompletionBaseURL string
	CompletionModel   string
	CompletionAPIKey  string
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthScope        string

	SummaryMaxWords       int
	CompletionMaxAttempts int
	CompletionTimeout     time.Duration

	QueueURL          string
	StaleRunThreshold time.Duration
	ReaperInterval    time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,
		Env:             env,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),

		CompletionBaseURL: getEnv("COMPLETION_BASE_URL", "https://api.openai.com/v1"),
		CompletionModel:   getEnv("COMPLETION_MODEL", ""),
		CompletionAPIKey:  getEnv("COMPLETION_API_KEY", ""),
		OAuthTokenURL:     getEnv("COMPLETION_OAUTH_TOKEN_URL", ""),
		OAuthClientID:     getEnv("COMPLETION_OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("COMPLETION_OAUTH_CLIENT_SECRET", ""),
		OAuthScope:        getEnv("COMPLETION_OAUTH_SCOPE", ""),

		SummaryMaxWords:       getEnvInt("SUMMARY_MAX_WORDS", 250),
		CompletionMaxAttempts: getEnvInt("COMPLETION_MAX_ATTEMPTS", 3),
		CompletionTimeout:     getEnvDuration("COMPLETION_TIMEOUT", 120*time.Second),

		QueueURL:          getEnv("RP_SQS_QUEUE_URL", ""),
		StaleRunThreshold: getEnvDuration("STALE_RUN_THRESHOLD", 30*time.Minute),
		ReaperInterval:    getEnvDuration("REAPER_INTERVAL", 5*time.Minute),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config: %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
