// Package config provides application-wide configuration loaded from env vars.
// All fields have safe defaults so the binary runs locally without any env setup.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration for toolforge.
type Config struct {
	// Server
	HTTPAddr      string // TOOLFORGE_HTTP_ADDR — default: ":8080"
	JWTSecret     string // TOOLFORGE_JWT_SECRET — default: dev-only secret
	ServiceID     string // TOOLFORGE_SERVICE_ID — default: "local"
	ServiceSecret string // TOOLFORGE_SERVICE_SECRET — default: dev-only secret
	LogLevel      string // TOOLFORGE_LOG_LEVEL — default: "info"

	// Storage
	DBPath      string // TOOLFORGE_DB_PATH — default: "toolforge.db"
	DatasetPath string // TOOLFORGE_DATASET_PATH — default: "training_data.jsonl"
	FilesRoot   string // TOOLFORGE_FILES_ROOT — default: "./workspace"

	// Dispatch
	MaxCallsPerTurn int           // TOOLFORGE_MAX_CALLS_PER_TURN — default: 10
	MaxRetries      int           // TOOLFORGE_MAX_RETRIES — default: 3
	RetryBaseDelay  time.Duration // TOOLFORGE_RETRY_BASE_DELAY — default: 100ms
	ToolTimeout     time.Duration // TOOLFORGE_TOOL_TIMEOUT — default: 5s

	// LLM
	LLMProvider       string // TOOLFORGE_LLM_PROVIDER — default: "openrouter"
	OpenRouterBaseURL string // TOOLFORGE_OPENROUTER_BASE_URL — default: "https://openrouter.ai/api/v1"
	OpenRouterAPIKey  string // TOOLFORGE_OPENROUTER_API_KEY — default: ""
	OpenRouterModel   string // TOOLFORGE_OPENROUTER_MODEL — default: "openai/gpt-4o-mini"
}

const (
	envKeyHTTPAddr      = "TOOLFORGE_HTTP_ADDR"
	envKeyJWTSecret     = "TOOLFORGE_JWT_SECRET"
	envKeyServiceID     = "TOOLFORGE_SERVICE_ID"
	envKeyServiceSecret = "TOOLFORGE_SERVICE_SECRET"
	envKeyLogLevel      = "TOOLFORGE_LOG_LEVEL"

	envKeyDBPath      = "TOOLFORGE_DB_PATH"
	envKeyDatasetPath = "TOOLFORGE_DATASET_PATH"
	envKeyFilesRoot   = "TOOLFORGE_FILES_ROOT"

	envKeyMaxCallsPerTurn = "TOOLFORGE_MAX_CALLS_PER_TURN"
	envKeyMaxRetries      = "TOOLFORGE_MAX_RETRIES"
	envKeyRetryBaseDelay  = "TOOLFORGE_RETRY_BASE_DELAY"
	envKeyToolTimeout     = "TOOLFORGE_TOOL_TIMEOUT"

	envKeyLLMProvider       = "TOOLFORGE_LLM_PROVIDER"
	envKeyOpenRouterBaseURL = "TOOLFORGE_OPENROUTER_BASE_URL"
	envKeyOpenRouterAPIKey  = "TOOLFORGE_OPENROUTER_API_KEY"
	envKeyOpenRouterModel   = "TOOLFORGE_OPENROUTER_MODEL"
)

// Load reads configuration from environment variables, applying defaults for missing values.
func Load() Config {
	return Config{
		HTTPAddr:      envOr(envKeyHTTPAddr, ":8080"),
		JWTSecret:     envOr(envKeyJWTSecret, "dev-insecure-secret-change-me"),
		ServiceID:     envOr(envKeyServiceID, "local"),
		ServiceSecret: envOr(envKeyServiceSecret, "dev-insecure-service-secret"),
		LogLevel:      envOr(envKeyLogLevel, "info"),

		DBPath:      envOr(envKeyDBPath, "toolforge.db"),
		DatasetPath: envOr(envKeyDatasetPath, "training_data.jsonl"),
		FilesRoot:   envOr(envKeyFilesRoot, "./workspace"),

		MaxCallsPerTurn: envInt(envKeyMaxCallsPerTurn, 10),
		MaxRetries:      envInt(envKeyMaxRetries, 3),
		RetryBaseDelay:  envDuration(envKeyRetryBaseDelay, 100*time.Millisecond),
		ToolTimeout:     envDuration(envKeyToolTimeout, 5*time.Second),

		LLMProvider:       envOr(envKeyLLMProvider, "openrouter"),
		OpenRouterBaseURL: envOr(envKeyOpenRouterBaseURL, "https://openrouter.ai/api/v1"),
		OpenRouterAPIKey:  envOr(envKeyOpenRouterAPIKey, ""),
		OpenRouterModel:   envOr(envKeyOpenRouterModel, "openai/gpt-4o-mini"),
	}
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt parses key as an int, falling back on missing or malformed values.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envDuration parses key as a time.Duration ("5s", "100ms"), falling back on
// missing or malformed values.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
