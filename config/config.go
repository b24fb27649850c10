package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Gemini     GeminiConfig
	Storage    StorageConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	Enrichment EnrichmentConfig
	Matching   MatchingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port             string        `mapstructure:"port"`
	Environment      string        `mapstructure:"environment"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	MaxUploadSize    int64         `mapstructure:"max_upload_size"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
}

// GeminiConfig holds vision and text model configuration
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	VisionModel       string        `mapstructure:"vision_model"`
	TextModel         string        `mapstructure:"text_model"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds object storage configuration for uploaded photos
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url"`
}

// CacheConfig holds product cache configuration
type CacheConfig struct {
	Type      string `mapstructure:"type"` // "memory" or "redis"
	RedisURL  string `mapstructure:"redis_url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// EnrichmentConfig holds defaults for listing generation
type EnrichmentConfig struct {
	MinConfidence        int    `mapstructure:"min_confidence"`
	EnableDatabaseLookup bool   `mapstructure:"enable_database_lookup"`
	EnableSentiment      bool   `mapstructure:"enable_sentiment"`
	EnableCompleteness   bool   `mapstructure:"enable_completeness"`
	Locale               string `mapstructure:"locale"`
}

// MatchingConfig holds similarity matching configuration for the product cache
type MatchingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	MinScore          float64 `mapstructure:"min_score"` // 0-100
	FuzzyEditDistance int     `mapstructure:"fuzzy_edit_distance"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/listinglens/")

	// Environment variable settings, e.g. LISTINGLENS_GEMINI_API_KEY
	v.SetEnvPrefix("LISTINGLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a .env file from the working directory if present.
// Variables already set in the environment win.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values. Every key needs a default so
// AutomaticEnv can find it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.max_upload_size", 10<<20)
	v.SetDefault("server.batch_concurrency", 4)
	v.SetDefault("server.shutdown_timeout", "15s")

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.vision_model", "gemini-2.5-flash")
	v.SetDefault("gemini.text_model", "gemini-2.5-flash")
	v.SetDefault("gemini.requests_per_minute", 60)
	v.SetDefault("gemini.timeout", "60s")

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "listinglens-products")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.public_url", "")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", "listinglens:products")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.burst", 10)

	// Enrichment defaults
	v.SetDefault("enrichment.min_confidence", 50)
	v.SetDefault("enrichment.enable_database_lookup", true)
	v.SetDefault("enrichment.enable_sentiment", true)
	v.SetDefault("enrichment.enable_completeness", true)
	v.SetDefault("enrichment.locale", "en-US")

	// Matching defaults
	v.SetDefault("matching.enabled", true)
	v.SetDefault("matching.min_score", 60.0)
	v.SetDefault("matching.fuzzy_edit_distance", 1)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Gemini.APIKey == "" {
		return fmt.Errorf("Gemini API key is required (set LISTINGLENS_GEMINI_API_KEY)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Storage.Enabled && (config.Storage.Endpoint == "" || config.Storage.AccessKey == "" || config.Storage.SecretKey == "" || config.Storage.Bucket == "") {
		return fmt.Errorf("storage endpoint, access key, secret key and bucket are required when storage is enabled")
	}

	if config.Enrichment.MinConfidence < 0 || config.Enrichment.MinConfidence > 100 {
		return fmt.Errorf("enrichment min confidence must be between 0 and 100, got: %d", config.Enrichment.MinConfidence)
	}

	if config.Matching.MinScore < 0 || config.Matching.MinScore > 100 {
		return fmt.Errorf("matching min score must be between 0 and 100, got: %.1f", config.Matching.MinScore)
	}

	if config.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	return nil
}
