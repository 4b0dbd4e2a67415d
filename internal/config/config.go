// Package config defines the global configuration structure for the SkyCast service.
// Configuration is loaded once at process initialization and is immutable
// thereafter. It follows 12-Factor App principles by strictly separating
// code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to fail
// immediately on startup.
package config

import (
	"time"

	"skycast/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the SkyCast service.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"skycast"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Provider ProviderConfig
	Cache    CacheConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ProviderConfig holds OpenWeatherMap API credentials, endpoints, and outbound
// call tuning. The three base URLs cover the basic 2.5 tier, the geocoding API,
// and the subscription-gated One Call 3.0 tier.
type ProviderConfig struct {
	APIKey SecretString `envconfig:"OPENWEATHERMAP_API_KEY" validate:"required"`

	BaseURL    string `envconfig:"OWM_BASE_URL" default:"https://api.openweathermap.org/data/2.5" validate:"url"`
	GeoURL     string `envconfig:"OWM_GEO_URL" default:"https://api.openweathermap.org/geo/1.0" validate:"url"`
	OneCallURL string `envconfig:"OWM_ONECALL_URL" default:"https://api.openweathermap.org/data/3.0" validate:"url"`
	TileURL    string `envconfig:"OWM_TILE_URL" default:"https://tile.openweathermap.org/map" validate:"url"`

	Timeout    time.Duration `envconfig:"OWM_TIMEOUT" default:"30s"`
	MaxRetries int           `envconfig:"OWM_MAX_RETRIES" default:"3"`
	UserAgent  string        `envconfig:"OWM_USER_AGENT" default:"skycast/1.0"`
}

// CacheConfig holds Redis settings for the geocode result cache.
// An empty Addr disables caching entirely.
type CacheConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password SecretString  `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
