package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	LogFormat string
	LogLevel  string

	MetricsNamespace  string
	MetricsBucketsCSV string
	TracingEnabled    bool
	TracingEndpoint   string
	TracingExporter   string
	TracingSampleRate float64

	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration

	// EditDebounce is how long a back office line edit is held back
	// before it is written, so rapid consecutive edits collapse into
	// one write.
	EditDebounce     time.Duration
	EditFlushTimeout time.Duration

	DefaultDistributorCode string

	PricingVATRate         float64
	PricingInvoiceDivisor  float64
	PricingInvoiceDiscount float64
	PricingSkonto          float64

	SubmitRateWindow time.Duration
	SubmitRateMax    int
	GlobalRateLimit  string

	NotifyEmailEnabled    bool
	NotifyEmailFrom       string
	NotifyBackOfficeEmail string
	NotifyEmailTopics     map[string]bool

	WorkerConcurrency int
	PageDefaultLimit  int
	PageMaxLimit      int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		MetricsNamespace:  valueOrDefault(k.String("METRICS_NAMESPACE"), "portal"),
		MetricsBucketsCSV: k.String("METRICS_BUCKETS_MS"),
		TracingEnabled:    parseBool(k.String("TRACING_ENABLED")),
		TracingEndpoint:   strings.TrimSpace(k.String("TRACING_ENDPOINT")),
		TracingExporter:   valueOrDefault(k.String("TRACING_EXPORTER"), "otlp"),
		TracingSampleRate: parseFloat(k.String("TRACING_SAMPLE_RATE"), "1"),

		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		EditDebounce:     parseDuration(k.String("EDIT_DEBOUNCE"), "600ms"),
		EditFlushTimeout: parseDuration(k.String("EDIT_FLUSH_TIMEOUT"), "5s"),

		DefaultDistributorCode: valueOrDefault(k.String("DEFAULT_DISTRIBUTOR_CODE"), "ep"),

		PricingVATRate:         parseFloat(k.String("PRICING_VAT_RATE"), "0.081"),
		PricingInvoiceDivisor:  parseFloat(k.String("PRICING_INVOICE_DIVISOR"), "0.92"),
		PricingInvoiceDiscount: parseFloat(k.String("PRICING_INVOICE_DISCOUNT"), "0.865"),
		PricingSkonto:          parseFloat(k.String("PRICING_SKONTO"), "0.97"),

		SubmitRateWindow: parseDuration(k.String("SUBMIT_RATE_WINDOW"), "1m"),
		SubmitRateMax:    parseInt(k.String("SUBMIT_RATE_MAX"), 10),
		GlobalRateLimit:  valueOrDefault(k.String("GLOBAL_RATE_LIMIT"), "300-M"),

		NotifyEmailEnabled:    parseBool(k.String("NOTIFY_EMAIL_ENABLED")),
		NotifyEmailFrom:       strings.TrimSpace(k.String("NOTIFY_EMAIL_FROM")),
		NotifyBackOfficeEmail: strings.TrimSpace(k.String("NOTIFY_BACKOFFICE_EMAIL")),
		NotifyEmailTopics:     parseToggles(k.String("NOTIFY_EMAIL_TOPICS")),

		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 4),
		PageDefaultLimit:  parseInt(k.String("PAGE_DEFAULT_LIMIT"), 50),
		PageMaxLimit:      parseInt(k.String("PAGE_MAX_LIMIT"), 200),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
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
	if strings.TrimSpace(value) != "" {
		return value
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
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseFloat(value, fallback string) float64 {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	f, err := strconv.ParseFloat(base, 64)
	if err != nil {
		f, _ = strconv.ParseFloat(fallback, 64)
	}
	return f
}

func parseInt(value string, fallback int) int {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	n, err := strconv.Atoi(base)
	if err != nil {
		return fallback
	}
	return n
}

// parseToggles reads "topic=true,other=false" pairs. A bare topic name
// counts as enabled.
func parseToggles(value string) map[string]bool {
	entries := splitAndTrim(value)
	if len(entries) == 0 {
		return nil
	}
	toggles := make(map[string]bool, len(entries))
	for _, entry := range entries {
		name, raw, found := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !found {
			toggles[name] = true
			continue
		}
		toggles[name] = parseBool(raw)
	}
	return toggles
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
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
