package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Payment providers understood by PAYMENT_PROVIDER.
const (
	ProviderStripe  = "stripe"
	ProviderSandbox = "sandbox"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string `validate:"required"`
	Port   string `validate:"required"`

	LogFormat          string `validate:"oneof=json console"`
	LogLevel           string `validate:"oneof=trace debug info warn error"`
	EnablePrometheus   bool
	MetricsNamespace   string `validate:"required"`
	MetricsBucketsMS   string
	EnableTracing      bool
	OTLPEndpoint       string  `validate:"omitempty,url"`
	TracingSampleRatio float64 `validate:"gte=0,lte=1"`

	PaymentProvider   string `validate:"oneof=stripe sandbox"`
	StripeSecretKey   string
	StripeSecretID    string
	StripeAPIBaseURL  string        `validate:"omitempty,url"`
	StripeHTTPTimeout time.Duration `validate:"gt=0"`

	JWTSecret     string
	JWKSURL       string `validate:"omitempty,url"`
	AuthIssuer    string
	AuthAudience  string
	AuthClockSkew time.Duration `validate:"gte=0"`

	CORSAllowedOrigins   []string
	BodyLimitBytes       int64 `validate:"gt=0"`
	SecureHeadersEnabled bool
	ShutdownTimeout      time.Duration `validate:"gt=0"`
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             strings.ToLower(valueOrDefault(k.String("APP_ENV"), "development")),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		LogFormat:          strings.ToLower(valueOrDefault(k.String("OBS_LOG_FORMAT"), "json")),
		LogLevel:           strings.ToLower(valueOrDefault(k.String("OBS_LOG_LEVEL"), "info")),
		EnablePrometheus:   parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace:   valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "payintent"),
		MetricsBucketsMS:   strings.TrimSpace(k.String("OBS_METRICS_BUCKETS_MS")),
		EnableTracing:      parseBool(k.String("OBS_ENABLE_TRACING")),
		OTLPEndpoint:       strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampleRatio: parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),

		PaymentProvider:   strings.ToLower(valueOrDefault(k.String("PAYMENT_PROVIDER"), ProviderStripe)),
		StripeSecretKey:   strings.TrimSpace(k.String("STRIPE_SECRET_KEY")),
		StripeSecretID:    strings.TrimSpace(k.String("STRIPE_SECRET_ID")),
		StripeAPIBaseURL:  strings.TrimSpace(k.String("STRIPE_API_BASE_URL")),
		StripeHTTPTimeout: parseDuration(k.String("STRIPE_HTTP_TIMEOUT"), "80s"),

		JWTSecret:     strings.TrimSpace(k.String("AUTH_JWT_SECRET")),
		JWKSURL:       strings.TrimSpace(k.String("AUTH_JWKS_URL")),
		AuthIssuer:    strings.TrimSpace(k.String("AUTH_ISSUER")),
		AuthAudience:  strings.TrimSpace(k.String("AUTH_AUDIENCE")),
		AuthClockSkew: parseDuration(k.String("AUTH_CLOCK_SKEW"), "30s"),

		CORSAllowedOrigins:   splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:       parseInt64(k.String("HTTP_BODY_LIMIT_BYTES"), 64<<10),
		SecureHeadersEnabled: parseBoolDefault(k.String("SECURE_HEADERS_ENABLED"), true),
		ShutdownTimeout:      parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.JWTSecret != "" && cfg.JWKSURL != "" {
		return nil, errors.New("AUTH_JWT_SECRET and AUTH_JWKS_URL are mutually exclusive")
	}
	if cfg.PaymentProvider == ProviderSandbox && cfg.IsProduction() {
		return nil, errors.New("PAYMENT_PROVIDER=sandbox is not allowed in production")
	}
	if cfg.PaymentProvider == ProviderStripe && cfg.StripeSecretKey == "" && cfg.StripeSecretID == "" {
		return nil, errors.New("STRIPE_SECRET_KEY or STRIPE_SECRET_ID is required")
	}
	if cfg.EnableTracing && cfg.OTLPEndpoint == "" {
		return nil, errors.New("OBS_OTLP_ENDPOINT is required when tracing is enabled")
	}

	return cfg, nil
}

// RequireIdentity fails unless exactly one bearer token key source is set.
// The HTTP server needs one; behind an API Gateway authorizer none is used.
func (c *Config) RequireIdentity() error {
	if c.JWTSecret == "" && c.JWKSURL == "" {
		return errors.New("AUTH_JWT_SECRET or AUTH_JWKS_URL is required")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseInt64(value string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
