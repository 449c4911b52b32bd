package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the configuration for the dialogue service.
// Environment variables are automatically parsed from the RPGAI_ prefix.
type Config struct {
	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8000"`

	// Memory store
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"npc_memory.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// Generation backend (Gemini REST API)
	GeminiAPIKey    string  `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel     string  `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash-exp"`
	GeminiBaseURL   string  `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	Temperature     float64 `envconfig:"TEMPERATURE" default:"0.7"`
	TopP            float64 `envconfig:"TOP_P" default:"0.9"`
	MaxOutputTokens int     `envconfig:"MAX_OUTPUT_TOKENS" default:"220"`

	// Turn policy. TopK and MaxMemoryWrites are tunables, not invariants.
	RetrievalTopK          int `envconfig:"RETRIEVAL_TOP_K" default:"3"`
	MaxMemoryWrites        int `envconfig:"MAX_MEMORY_WRITES" default:"2"`
	StreamChunkSize        int `envconfig:"STREAM_CHUNK_SIZE" default:"20"`
	GenerateTimeoutSeconds int `envconfig:"GENERATE_TIMEOUT_SECONDS" default:"30"`

	// Voice (Google Cloud TTS/STT). Voice endpoints answer 503 when the
	// key is unset; the dialogue pipeline is unaffected.
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY" default:""`
	MediaDir     string `envconfig:"MEDIA_DIR" default:"./media"`
	MediaBaseURL string `envconfig:"MEDIA_BASE_URL" default:"http://localhost:8000/media"`

	// Retention sweep. RetentionDays 0 disables the sweeper.
	RetentionDays      int `envconfig:"RETENTION_DAYS" default:"0"`
	SweepIntervalHours int `envconfig:"SWEEP_INTERVAL_HOURS" default:"24"`

	// Health monitoring
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"30"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
}

// Validate checks driver selection and policy values.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("RPGAI_SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("RPGAI_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.RetrievalTopK < 1 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be >= 1, got %d", c.RetrievalTopK)
	}
	if c.MaxMemoryWrites < 0 {
		return fmt.Errorf("MAX_MEMORY_WRITES must be >= 0, got %d", c.MaxMemoryWrites)
	}
	if c.StreamChunkSize < 1 {
		return fmt.Errorf("STREAM_CHUNK_SIZE must be >= 1, got %d", c.StreamChunkSize)
	}
	if c.GenerateTimeoutSeconds < 1 {
		return fmt.Errorf("GENERATE_TIMEOUT_SECONDS must be >= 1, got %d", c.GenerateTimeoutSeconds)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS must be >= 0, got %d", c.RetentionDays)
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Environment variables should be prefixed with RPGAI_
// Example: RPGAI_HTTP_PORT, RPGAI_GEMINI_API_KEY.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("RPGAI", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Str("model", cfg.GeminiModel).
		Int("retrieval_top_k", cfg.RetrievalTopK).
		Int("max_memory_writes", cfg.MaxMemoryWrites).
		Int("retention_days", cfg.RetentionDays).
		Bool("gemini_key_present", cfg.GeminiAPIKey != "").
		Bool("google_key_present", cfg.GoogleAPIKey != "").
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config with sane defaults for tests.
func NewForTesting() *Config {
	return &Config{
		HTTPPort:                  8000,
		DBDriver:                  "sqlite",
		SQLitePath:                "npc_memory.db",
		GeminiModel:               "gemini-2.0-flash-exp",
		GeminiBaseURL:             "https://generativelanguage.googleapis.com",
		Temperature:               0.7,
		TopP:                      0.9,
		MaxOutputTokens:           220,
		RetrievalTopK:             3,
		MaxMemoryWrites:           2,
		StreamChunkSize:           20,
		GenerateTimeoutSeconds:    30,
		MediaDir:                  "./media",
		MediaBaseURL:              "http://localhost:8000/media",
		SweepIntervalHours:        24,
		HealthIntervalSeconds:     30,
		HealthProbeTimeoutSeconds: 2,
	}
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GenerateTimeout returns the per-turn backend call timeout.
func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSeconds) * time.Second
}

// RetentionAge returns the sweep age cutoff; zero disables sweeping.
func (c *Config) RetentionAge() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SweepInterval returns the cadence of the retention sweeper.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalHours) * time.Hour
}

// HealthInterval returns the dependency probe cadence.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalSeconds) * time.Second
}

// HealthProbeTimeout returns the per-probe timeout.
func (c *Config) HealthProbeTimeout() time.Duration {
	return time.Duration(c.HealthProbeTimeoutSeconds) * time.Second
}
