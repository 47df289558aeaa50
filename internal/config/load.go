package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "ADSMITH"

// envKeys lists every configuration key so that viper binds them to environment
// variables even when no config file mentions them.
var envKeys = []string{
	"server.port",
	"server.log_level",
	"server.debug_routes",
	"server.shutdown_timeout_seconds",
	"server.enhance_timeout_seconds",
	"server.retry_after_seconds",
	"database.url",
	"database.max_open_conns",
	"database.max_idle_conns",
	"auth.jwt_secret",
	"auth.token_lifetime_minutes",
	"auth.refresh_token_lifetime_minutes",
	"auth.bcrypt_cost",
	"llm.gemini_api_key",
	"llm.base_url",
	"llm.text_model",
	"llm.image_model",
	"llm.max_attempts",
	"llm.base_delay_ms",
	"llm.attempt_timeout_seconds",
	"llm.max_image_bytes",
	"storage.backend",
	"storage.bucket",
	"storage.public_base_url",
	"storage.local_dir",
	"ratelimit.backend",
	"ratelimit.requests_per_minute",
	"ratelimit.burst",
	"ratelimit.redis_url",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.debug_routes", false)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.enhance_timeout_seconds", 25)
	v.SetDefault("server.retry_after_seconds", 3)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("llm.text_model", "gemini-2.5-pro")
	v.SetDefault("llm.image_model", "gemini-2.5-flash-image")
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.base_delay_ms", 300)
	v.SetDefault("llm.attempt_timeout_seconds", 30)
	v.SetDefault("llm.max_image_bytes", 20<<20)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.bucket", "generations")
	v.SetDefault("storage.local_dir", "./data/media")

	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.requests_per_minute", 10)
	v.SetDefault("ratelimit.burst", 3)
}

// Load configuration from environment variables and optionally config files.
// A .env file in the working directory is loaded first if present; variables that
// are already set in the process environment are never overridden by it.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if cfg.Storage.PublicBaseURL == "" && cfg.Storage.Backend == "gcs" {
		cfg.Storage.PublicBaseURL = "https://storage.googleapis.com/" + cfg.Storage.Bucket
	}
	if cfg.Storage.PublicBaseURL == "" && cfg.Storage.Backend == "local" {
		cfg.Storage.PublicBaseURL = fmt.Sprintf("http://localhost:%d/media", cfg.Server.Port)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
