// Package config loads process configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"os"
	"strconv"
	"time"

	"coachspine/internal/apperr"

	"github.com/joho/godotenv"
)

// Config holds every setting read from the environment at boot.
type Config struct {
	Port string

	DatabaseURL string

	TrackerAPIKey string
	TrackerMCPCmd string // command line used to spawn the tracker's MCP tool-server

	AnthropicAPIKey string
	AnthropicModel  string

	ScraperUsername string
	ScraperPassword string
	ScraperBaseURL  string

	OTLPEndpoint       string
	ObservabilityToken string

	LogLevel string
	Debug    bool

	CORSAllowedOrigin string

	SyncLookbackDays       int
	SyncStalenessThreshold time.Duration
	ScrapeJobTimeout       time.Duration
	ScrapeCron             string
	TrackerPullInterval    time.Duration

	MCPToolTimeout time.Duration

	AutoMigrate bool
}

// Load reads configuration from the environment, seeding from a .env file
// in the working directory first when present. Missing required variables
// produce a ConfigError.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		TrackerAPIKey: getEnv("TRACKER_API_KEY", ""),
		TrackerMCPCmd: getEnv("TRACKER_MCP_CMD", ""),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),

		ScraperUsername: getEnv("NUTRITION_SCRAPER_USERNAME", ""),
		ScraperPassword: getEnv("NUTRITION_SCRAPER_PASSWORD", ""),
		ScraperBaseURL:  getEnv("NUTRITION_SCRAPER_BASE_URL", ""),

		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ObservabilityToken: getEnv("OBSERVABILITY_TOKEN", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Debug:    getEnvAsBool("DEBUG", false),

		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),

		SyncLookbackDays:       getEnvAsInt("NUTRITION_SYNC_LOOKBACK_DAYS", 7),
		SyncStalenessThreshold: getDurationEnv("SYNC_STALENESS_THRESHOLD", 48*time.Hour),
		ScrapeJobTimeout:       getDurationEnv("SCRAPE_JOB_TIMEOUT", 3*time.Minute),
		ScrapeCron:             getEnv("NUTRITION_SCRAPE_CRON", "0 2 * * *"),
		TrackerPullInterval:    getDurationEnv("TRACKER_PULL_INTERVAL", 6*time.Hour),

		MCPToolTimeout: getDurationEnv("MCP_TOOL_TIMEOUT", 20*time.Second),

		AutoMigrate: getEnvAsBool("AUTO_MIGRATE", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return apperr.Config("DATABASE_URL is required")
	}
	if c.AnthropicAPIKey == "" {
		return apperr.Config("ANTHROPIC_API_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getDurationEnv accepts Go duration strings ("45s", "2h") plus a bare
// integer interpreted as hours, matching how operators write staleness
// thresholds in .env files ("48" meaning 48h).
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	if hours, err := strconv.Atoi(value); err == nil {
		return time.Duration(hours) * time.Hour
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
