package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageBackendMemory   = "memory"
	StorageBackendPostgres = "postgres"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	PostgresURL string `env:"POSTGRES_URL"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// StorageBackend selects where the per-account edge cache keeps its keys.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`

	// UpstreamBaseURL is where the edge cache sends recommend and state-sync calls.
	// Empty means this process.
	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	RecommendationCacheTTL time.Duration `env:"RECOMMENDATION_CACHE_TTL" envDefault:"5m"`
	QuizResultTTL          time.Duration `env:"QUIZ_RESULT_TTL" envDefault:"720h"`
	CacheSweepInterval     time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"1m"`

	RecommendRadiusKm float64 `env:"RECOMMEND_RADIUS_KM" envDefault:"3"`
	RecommendLimit    int     `env:"RECOMMEND_LIMIT" envDefault:"12"`

	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" envDefault:"none"`
	EmbeddingModel    string `env:"EMBEDDING_MODEL"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY"`

	JWTSecret string `env:"SUPABASE_JWT_SECRET"`
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.PostgresURL == "" {
		return errors.New("POSTGRES_URL is required")
	}
	switch c.StorageBackend {
	case StorageBackendMemory, StorageBackendPostgres:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.RecommendLimit < 1 || c.RecommendLimit > 100 {
		return fmt.Errorf("RECOMMEND_LIMIT must be between 1 and 100, got %d", c.RecommendLimit)
	}
	if c.RecommendRadiusKm <= 0 {
		return fmt.Errorf("RECOMMEND_RADIUS_KM must be positive")
	}
	return nil
}

// EmbeddingAPIKey returns the key matching the configured provider.
func (c *Config) EmbeddingAPIKey() string {
	switch strings.ToLower(c.EmbeddingProvider) {
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	}
	return ""
}

// UpstreamURL resolves the base URL for upstream calls.
func (c *Config) UpstreamURL() string {
	if c.UpstreamBaseURL != "" {
		return strings.TrimRight(c.UpstreamBaseURL, "/")
	}
	return "http://127.0.0.1:" + c.Port
}
