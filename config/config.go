package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App     AppConfig
	Server  ServerConfig
	API     APIConfig
	Store   StoreConfig
	Log     LogConfig
	Tracing TracingConfig
	CORS    CORSConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// Upper bound for a multipart scan upload accepted from the front end.
	MaxUploadBytes int64
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig describes the remote Oncosist API the console talks to.
type APIConfig struct {
	BaseURL string
	// Origin that relative asset paths (file_path, prediction_result_path) resolve against.
	AssetOrigin string
	// Base URL that prediction overlay file names are appended to.
	StaticBaseURL string
	Timeout       time.Duration

	RequestsPerSecond float64
	BurstSize         int

	// Circuit breaker: trips after BreakerFailures consecutive failures and stays
	// open for BreakerOpenTimeout.
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
}

type StoreConfig struct {
	Driver string // "sqlite" | "postgres"
	DSN    string
	// SealSecret enables at-rest encryption of stored values when non-empty.
	SealSecret      string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
	SampleRate   float64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "oncoscan-console"),
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "0.0.0"),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "127.0.0.1"),
			Port:            getEnvInt("SERVER_PORT", 8090),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			MaxUploadBytes:  int64(getEnvInt("SERVER_MAX_UPLOAD_BYTES", 64<<20)),
		},
		API: APIConfig{
			BaseURL:            strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000"), "/"),
			AssetOrigin:        strings.TrimRight(getEnv("API_ASSET_ORIGIN", "http://localhost:8000"), "/"),
			StaticBaseURL:      strings.TrimRight(getEnv("API_STATIC_BASE_URL", "http://localhost:8000/predictions"), "/"),
			Timeout:            getEnvDuration("API_TIMEOUT", 60*time.Second),
			RequestsPerSecond:  getEnvFloat("API_RATE_LIMIT_RPS", 10),
			BurstSize:          getEnvInt("API_RATE_LIMIT_BURST", 20),
			BreakerFailures:    uint32(getEnvInt("API_BREAKER_FAILURES", 5)),
			BreakerOpenTimeout: getEnvDuration("API_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Driver:          getEnv("STORE_DRIVER", "sqlite"),
			DSN:             getEnv("STORE_DSN", "oncoscan.db"),
			SealSecret:      getEnv("STORE_SEAL_SECRET", ""),
			MaxOpenConns:    getEnvInt("STORE_MAX_OPEN_CONNS", 4),
			ConnMaxLifetime: getEnvDuration("STORE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "oncoscan-console"),
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4318"),
			Insecure:     getEnvBool("OTLP_INSECURE", true),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "X-Request-ID"}),
			MaxAge:         getEnvDuration("CORS_MAX_AGE", 12*time.Hour),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	var errs []string

	for name, raw := range map[string]string{
		"API_BASE_URL":        cfg.API.BaseURL,
		"API_ASSET_ORIGIN":    cfg.API.AssetOrigin,
		"API_STATIC_BASE_URL": cfg.API.StaticBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, name+" must be an absolute URL")
		}
	}

	switch cfg.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER %q is not supported (sqlite, postgres)", cfg.Store.Driver))
	}
	if cfg.Store.DSN == "" {
		errs = append(errs, "STORE_DSN is required")
	}

	// Tokens and clinician notes sit in the store; production must seal them.
	if cfg.App.Environment == "production" && len(cfg.Store.SealSecret) < 32 {
		errs = append(errs, "STORE_SEAL_SECRET must be at least 32 characters in production")
	}

	if cfg.API.RequestsPerSecond <= 0 {
		errs = append(errs, "API_RATE_LIMIT_RPS must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
