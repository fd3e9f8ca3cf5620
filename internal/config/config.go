// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the gateway's
// settings: server timeouts, logging, the artifact database, the payment
// facilitator and token, the generation provider, object storage, the
// generation pipeline, cleanup, rate limiting, and observability.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigError reports a configuration value that is missing or invalid.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s %s", e.Key, e.Msg)
}

func invalid(key, msg string) error { return &ConfigError{Key: key, Msg: msg} }

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DatabaseConfig selects the artifact store backend.
type DatabaseConfig struct {
	Driver string // postgres|sqlite
	URL    string // DATABASE_URL (postgres DSN)
	Path   string // DB_PATH (sqlite file)
}

// PaymentConfig describes the facilitator and the token prices are quoted in.
type PaymentConfig struct {
	FacilitatorURL     string
	FacilitatorSigner  string
	FacilitatorTimeout time.Duration
	WalletAddress      string // payTo
	Network            string
	TokenAddress       string
	TokenSymbol        string
	TokenName          string
	TokenVersion       string
	TokenDecimals      int
}

// ProviderConfig describes the upstream media generation API.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// MaxDownloadBytes caps a single result download.
	MaxDownloadBytes int64
}

// StorageConfig describes the S3-compatible bucket artifacts are written to.
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string
}

// PipelineConfig holds generation pipeline settings.
type PipelineConfig struct {
	ScratchDir      string
	TranscoderBin   string
	ArtifactTTL     time.Duration
	CleanupInterval time.Duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // generation can take minutes
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int    // bytes
	GinMode           string // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route

	// App
	PublicURL  string // externally reachable base URL of this gateway
	RoutesPath string // ROUTES_CONFIG (TOML route table)

	Database DatabaseConfig
	Payment  PaymentConfig
	Provider ProviderConfig
	Storage  StorageConfig
	Pipeline PipelineConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "3402"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 5*time.Minute),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),

		PublicURL:  strings.TrimRight(getenv("PUBLIC_URL", "http://localhost:3402"), "/"),
		RoutesPath: getenv("ROUTES_CONFIG", "routes.toml"),

		Database: DatabaseConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "postgres")),
			URL:    getenv("DATABASE_URL", ""),
			Path:   getenv("DB_PATH", "mediagw.db"),
		},

		Payment: PaymentConfig{
			FacilitatorURL:     strings.TrimRight(getenv("FACILITATOR_URL", "https://facilitator.x402.org"), "/"),
			FacilitatorSigner:  getenv("FACILITATOR_SIGNER", ""),
			FacilitatorTimeout: getdur("FACILITATOR_TIMEOUT", 30*time.Second),
			WalletAddress:      getenv("WALLET_ADDRESS", ""),
			Network:            getenv("PAYMENT_NETWORK", "base"),
			TokenAddress:       getenv("PAYMENT_TOKEN_ADDRESS", "0x587Cd533F418825521f3A1daa7CCd1E7339A1B07"),
			TokenSymbol:        getenv("PAYMENT_TOKEN_SYMBOL", "STARKBOT"),
			TokenName:          getenv("PAYMENT_TOKEN_NAME", "StarkBot"),
			TokenVersion:       getenv("PAYMENT_TOKEN_VERSION", "1"),
			TokenDecimals:      getint("PAYMENT_TOKEN_DECIMALS", 18),
		},

		Provider: ProviderConfig{
			BaseURL: strings.TrimRight(getenv("PROVIDER_BASE_URL", "https://fal.run"), "/"),
			APIKey:  getenv("PROVIDER_API_KEY", getenv("FAL_KEY", "")),
			Timeout: getdur("PROVIDER_TIMEOUT", 3*time.Minute),

			MaxDownloadBytes: int64(getint("PROVIDER_MAX_DOWNLOAD_BYTES", 256<<20)),
		},

		Storage: StorageConfig{
			Endpoint:  getenv("S3_ENDPOINT", ""),
			Region:    getenv("S3_REGION", "us-east-1"),
			Bucket:    getenv("S3_BUCKET", ""),
			AccessKey: getenv("S3_ACCESS_KEY", ""),
			SecretKey: getenv("S3_SECRET_KEY", ""),
			PublicURL: strings.TrimRight(getenv("S3_PUBLIC_URL", ""), "/"),
		},

		Pipeline: PipelineConfig{
			ScratchDir:      getenv("SCRATCH_DIR", "tmp"),
			TranscoderBin:   getenv("TRANSCODER_BIN", "ffmpeg"),
			ArtifactTTL:     getdur("ARTIFACT_TTL", 7*24*time.Hour),
			CleanupInterval: getdur("CLEANUP_INTERVAL", time.Hour),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 2.0),
		RateBurst: getint("RATE_BURST", 5),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "x402-media-gateway"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Database.Driver == "postgresql" {
		cfg.Database.Driver = "postgres"
	}

	return cfg, cfg.Validate()
}

// Validate checks value ranges and required settings.
func (cfg Config) Validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return invalid("LOG_LEVEL", "must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return invalid("PORT", "must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return invalid("", "timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return invalid("MAX_HEADER_BYTES", "must be > 0")
	}
	if strings.TrimSpace(cfg.RoutesPath) == "" {
		return invalid("ROUTES_CONFIG", "must not be empty")
	}

	switch cfg.Database.Driver {
	case "postgres":
		if strings.TrimSpace(cfg.Database.URL) == "" {
			return invalid("DATABASE_URL", "is required when DB_DRIVER=postgres")
		}
	case "sqlite":
		if strings.TrimSpace(cfg.Database.Path) == "" {
			return invalid("DB_PATH", "must not be empty")
		}
	default:
		return invalid("DB_DRIVER", "must be one of: postgres, sqlite")
	}

	required := []struct{ key, val string }{
		{"WALLET_ADDRESS", cfg.Payment.WalletAddress},
		{"FACILITATOR_SIGNER", cfg.Payment.FacilitatorSigner},
		{"FACILITATOR_URL", cfg.Payment.FacilitatorURL},
		{"PROVIDER_API_KEY", cfg.Provider.APIKey},
		{"S3_BUCKET", cfg.Storage.Bucket},
		{"S3_PUBLIC_URL", cfg.Storage.PublicURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return invalid(r.key, "is required")
		}
	}
	if cfg.Payment.TokenDecimals < 0 || cfg.Payment.TokenDecimals > 36 {
		return invalid("PAYMENT_TOKEN_DECIMALS", "must be between 0 and 36")
	}
	if cfg.Payment.FacilitatorTimeout <= 0 || cfg.Provider.Timeout <= 0 {
		return invalid("", "upstream timeouts must be positive durations")
	}
	if cfg.Provider.MaxDownloadBytes <= 0 {
		return invalid("PROVIDER_MAX_DOWNLOAD_BYTES", "must be > 0")
	}
	if cfg.Pipeline.ArtifactTTL <= 0 {
		return invalid("ARTIFACT_TTL", "must be > 0")
	}
	if cfg.Pipeline.CleanupInterval <= 0 {
		return invalid("CLEANUP_INTERVAL", "must be > 0")
	}
	if strings.TrimSpace(cfg.Pipeline.ScratchDir) == "" {
		return invalid("SCRATCH_DIR", "must not be empty")
	}

	if cfg.RateRPS < 0 {
		return invalid("RATE_RPS", "must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return invalid("RATE_BURST", "must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return invalid("HSTS_MAX_AGE", "must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return invalid("OTEL_TRACES_SAMPLER_ARG", "must be in [0,1]")
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

// getdur accepts Go durations ("90m") and plain seconds ("3600").
func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
