package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/askfolio/chat-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`

	// Database configuration. Empty DATABASE_URL keeps sessions in memory.
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// External service configurations
	OpenAICfg      OpenAIConnectorConfig      `envPrefix:"OPENAI_"`
	VectorStoreCfg VectorStoreConnectorConfig `envPrefix:"VECTOR_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Pipeline configuration
	Pipeline PipelineConfig `envPrefix:"PIPELINE_"`

	// CORS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Per-IP HTTP rate limiting
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	RateLimitBurst     int `env:"RATE_LIMIT_BURST" envDefault:"5"`

	// Intent retrieval table (loaded from JSON file, falls back to defaults)
	IntentConfigs IntentConfigs

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (only validated by the bot binary)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// PipelineConfig bounds the retrieval-and-generation pipeline.
type PipelineConfig struct {
	MaxConcurrentRequests int64         `env:"MAX_CONCURRENT_REQUESTS" envDefault:"3"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	MaxHistoryTurns       int           `env:"MAX_HISTORY_TURNS" envDefault:"5"`
	SessionTTL            time.Duration `env:"SESSION_TTL" envDefault:"1h"`

	// Response caching
	CacheEnabled bool          `env:"CACHE_ENABLED" envDefault:"true"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"30m"`
	CacheMaxSize int           `env:"CACHE_MAX_SIZE" envDefault:"100"`

	// Token budgets
	MaxTokensContext  int `env:"MAX_TOKENS_CONTEXT" envDefault:"2000"`
	MaxTokensHistory  int `env:"MAX_TOKENS_HISTORY" envDefault:"500"`
	MaxTokensResponse int `env:"MAX_TOKENS_RESPONSE" envDefault:"600"`

	// Hybrid scoring. The weights and the lexical rescale are empirically
	// chosen defaults, not a derived formula.
	SemanticWeight   float64 `env:"SEMANTIC_WEIGHT" envDefault:"0.7"`
	LexicalWeight    float64 `env:"LEXICAL_WEIGHT" envDefault:"0.3"`
	LexicalScale     float64 `env:"LEXICAL_SCALE" envDefault:"10"`
	RerankCandidates int     `env:"RERANK_CANDIDATES" envDefault:"10"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken        string        `env:"BOT_TOKEN"`
	UpdateTimeout   int           `env:"UPDATE_TIMEOUT" envDefault:"30"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type OpenAIConnectorConfig struct {
	HTTPClientConfig
	Model          string               `env:"MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string               `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	Temperature    float64              `env:"TEMPERATURE" envDefault:"0.7"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type VectorStoreConnectorConfig struct {
	HTTPClientConfig
	Collection string `env:"COLLECTION" envDefault:"portfolio"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"30s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL,notEmpty"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Load the intent retrieval table
	if err := loadIntentConfigs(cfg); err != nil {
		return nil, fmt.Errorf("load intent configs: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	p := cfg.Pipeline

	if p.MaxConcurrentRequests < 1 {
		return fmt.Errorf("PIPELINE_MAX_CONCURRENT_REQUESTS must be positive, got %d", p.MaxConcurrentRequests)
	}

	if p.MaxTokensContext < 0 || p.MaxTokensHistory < 0 || p.MaxTokensResponse < 0 {
		return fmt.Errorf("token budgets must be non-negative, got context=%d history=%d response=%d",
			p.MaxTokensContext, p.MaxTokensHistory, p.MaxTokensResponse)
	}

	if p.SemanticWeight < 0 || p.LexicalWeight < 0 {
		return fmt.Errorf("hybrid weights must be non-negative, got semantic=%f lexical=%f",
			p.SemanticWeight, p.LexicalWeight)
	}

	if p.CacheMaxSize < 1 {
		return fmt.Errorf("PIPELINE_CACHE_MAX_SIZE must be positive, got %d", p.CacheMaxSize)
	}

	if cfg.RateLimitPerMinute < 1 || cfg.RateLimitPerMinute > 600 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be between 1 and 600, got %d", cfg.RateLimitPerMinute)
	}

	if cfg.DatabaseURL != "" {
		if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
			return fmt.Errorf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns)
		}
		if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns)
		}
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
