package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage"   validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	DebugRoutes            bool   `mapstructure:"debug_routes"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
	// EnhanceTimeoutSeconds bounds the whole enhancement call, across all retry attempts.
	EnhanceTimeoutSeconds int `mapstructure:"enhance_timeout_seconds" validate:"gte=1"`
	// RetryAfterSeconds is the hint sent with 503 responses.
	RetryAfterSeconds int `mapstructure:"retry_after_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0,lt=44640"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0,lt=525600"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
}

// LLMConfig contains the generative-AI integration settings.
type LLMConfig struct {
	// GeminiAPIKey is either an API key or an OAuth access token (ya29. prefix).
	GeminiAPIKey          string `mapstructure:"gemini_api_key"          validate:"required"`
	BaseURL               string `mapstructure:"base_url"                validate:"required,url"`
	TextModel             string `mapstructure:"text_model"              validate:"required"`
	ImageModel            string `mapstructure:"image_model"             validate:"required"`
	MaxAttempts           int    `mapstructure:"max_attempts"            validate:"gte=1,lte=10"`
	BaseDelayMillis       int    `mapstructure:"base_delay_ms"           validate:"gte=0"`
	AttemptTimeoutSeconds int    `mapstructure:"attempt_timeout_seconds" validate:"gte=0"`
	MaxImageBytes         int64  `mapstructure:"max_image_bytes"         validate:"gt=0"`
}

// StorageConfig selects and configures the object store for generated images.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"         validate:"required,oneof=local gcs"`
	Bucket        string `mapstructure:"bucket"          validate:"required"`
	PublicBaseURL string `mapstructure:"public_base_url" validate:"omitempty,url"`
	LocalDir      string `mapstructure:"local_dir"       validate:"required_if=Backend local"`
}

// RateLimitConfig controls per-user throttling of image generation.
type RateLimitConfig struct {
	Backend           string `mapstructure:"backend"             validate:"required,oneof=memory redis"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" validate:"gte=1"`
	Burst             int    `mapstructure:"burst"               validate:"gte=1"`
	RedisURL          string `mapstructure:"redis_url"           validate:"required_if=Backend redis"`
}
