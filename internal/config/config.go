package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the audio generation service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// TTS provider configuration. The provider accepts a synthesis call,
	// returns an opaque event id, and reports completion through a buffered
	// event stream that is read once per job.
	ProviderBaseURL        string `envconfig:"PROVIDER_BASE_URL" required:"true"`
	ProviderAPIKey         string `envconfig:"PROVIDER_API_KEY" default:""`
	ProviderVoiceID        string `envconfig:"PROVIDER_VOICE_ID" default:"narrator-en"`
	ProviderModelID        string `envconfig:"PROVIDER_MODEL_ID" default:"long-form-v2"`
	ProviderVoiceSampleURL string `envconfig:"PROVIDER_VOICE_SAMPLE_URL" default:""`

	// Text chunking configuration. Scripts longer than ChunkThresholdWords
	// are split into provider-safe chunks before submission.
	ChunkThresholdWords  int  `envconfig:"CHUNK_THRESHOLD_WORDS" default:"100"`
	MaxWordsPerChunk     int  `envconfig:"MAX_WORDS_PER_CHUNK" default:"100"`
	MaxCharsPerChunk     int  `envconfig:"MAX_CHARS_PER_CHUNK" default:"800"`
	OverlapWords         int  `envconfig:"OVERLAP_WORDS" default:"5"`
	PreferSentenceBreaks bool `envconfig:"PREFER_SENTENCE_BREAKS" default:"true"`

	// Poll loop configuration (caller-side retry policy; the orchestrator
	// itself never retries a poll)
	PollMaxAttempts   int `envconfig:"POLL_MAX_ATTEMPTS" default:"30"`
	PollIntervalSecs  int `envconfig:"POLL_INTERVAL_SECONDS" default:"10"`
	HTTPTimeoutSecs   int `envconfig:"HTTP_TIMEOUT_SECONDS" default:"120"`
	SubmitTimeoutSecs int `envconfig:"SUBMIT_TIMEOUT_SECONDS" default:"30"`

	// Job record store configuration. When RedisAddr is empty the service
	// falls back to an in-process store.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisTTLHours int    `envconfig:"REDIS_TTL_HOURS" default:"168"`

	// Object storage sink configuration
	StorageDir     string `envconfig:"STORAGE_DIR" default:"./data/audio"`
	StorageBaseURL string `envconfig:"STORAGE_BASE_URL" default:"http://localhost:8080/audio"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Validate required fields
	if cfg.ProviderBaseURL == "" {
		return nil, fmt.Errorf("PROVIDER_BASE_URL is required")
	}
	if cfg.MaxWordsPerChunk <= 0 {
		return nil, fmt.Errorf("MAX_WORDS_PER_CHUNK must be positive, got %d", cfg.MaxWordsPerChunk)
	}
	if cfg.MaxCharsPerChunk <= 0 {
		return nil, fmt.Errorf("MAX_CHARS_PER_CHUNK must be positive, got %d", cfg.MaxCharsPerChunk)
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
