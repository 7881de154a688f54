package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultFalModel          = "fal-ai/thinksound"
	defaultCORSOriginPattern = `^https://[a-z0-9-]+\.wxp\.adobe-addons\.com$`
	defaultUploadMaxBytes    = 100 << 20
)

var defaultCORSOrigins = []string{
	"https://localhost:5241",
	"https://new.express.adobe.com",
	"https://w513kh8ki.wxp.adobe-addons.com",
	"https://w0n4g6khi.wxp.adobe-addons.com",
}

var defaultUploadTypes = []string{
	"video/mp4",
	"video/quicktime",
	"video/webm",
	"video/x-matroska",
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	FalKey          string
	FalQueueBaseURL string
	FalRestBaseURL  string
	FalModel        string
	FalPollInterval time.Duration

	GenerationTimeout time.Duration
	SubmitMaxAttempts int
	SubmitRetryDelay  time.Duration

	StorageDriver  string
	StoragePath    string
	StorageBaseURL string

	UploadMaxBytes     int64
	UploadAllowedTypes []string

	CORSAllowedOrigins []string
	CORSOriginPattern  string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "3000")
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        port,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),

		FalKey:          firstEnv("FAL_KEY", "FAL_API_KEY"),
		FalQueueBaseURL: getEnv("FAL_QUEUE_URL", "https://queue.fal.run"),
		FalRestBaseURL:  getEnv("FAL_REST_URL", "https://rest.alpha.fal.ai"),
		FalModel:        getEnv("FAL_MODEL", defaultFalModel),
		FalPollInterval: time.Millisecond * time.Duration(getEnvInt("FAL_POLL_INTERVAL_MS", 1000)),

		GenerationTimeout: time.Second * time.Duration(getEnvInt("GENERATION_TIMEOUT_SECONDS", 60)),
		SubmitMaxAttempts: getEnvInt("SUBMIT_MAX_ATTEMPTS", 3),
		SubmitRetryDelay:  time.Millisecond * time.Duration(getEnvInt("SUBMIT_RETRY_DELAY_MS", 2000)),

		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", "")),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),

		UploadMaxBytes:     int64(getEnvInt("UPLOAD_MAX_BYTES", defaultUploadMaxBytes)),
		UploadAllowedTypes: getEnvList("UPLOAD_ALLOWED_TYPES", defaultUploadTypes),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		CORSOriginPattern:  getEnv("CORS_ORIGIN_PATTERN", defaultCORSOriginPattern),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.StorageDriver == "" {
		cfg.StorageDriver = "fal"
		if cfg.FalKey == "" {
			cfg.StorageDriver = "filesystem"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsesFal reports whether remote fal.ai calls can be made.
func (c *Config) UsesFal() bool {
	return c != nil && c.FalKey != ""
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case "fal":
		if c.FalKey == "" {
			return fmt.Errorf("FAL_KEY is required when STORAGE_DRIVER=fal")
		}
	case "filesystem":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT_SECONDS must be positive")
	}
	if c.SubmitMaxAttempts <= 0 {
		return fmt.Errorf("SUBMIT_MAX_ATTEMPTS must be positive")
	}
	if c.SubmitRetryDelay < 0 {
		return fmt.Errorf("SUBMIT_RETRY_DELAY_MS must not be negative")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	for _, raw := range []string{c.FalQueueBaseURL, c.FalRestBaseURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid fal base url %q", raw)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
