package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Discord   DiscordConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Engine    EngineConfig
	Cache     CacheConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// DiscordConfig holds the gateway credential and the watched channel.
type DiscordConfig struct {
	Token string

	// MoviesChannelID is the only channel whose messages are considered.
	MoviesChannelID string
}

// BrowserConfig controls the per-invocation Rod browser.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is passed to Chromium as --proxy-server.
	Proxy string

	// Stealth injects the go-rod/stealth evasions before navigation.
	Stealth bool // default: true

	// MaxConcurrent bounds the number of browsers alive at once.
	MaxConcurrent int // default: 4
}

// ScraperConfig controls page loading and field extraction.
type ScraperConfig struct {
	// NavigationTimeout is the max time for launch + navigate + load.
	NavigationTimeout time.Duration // default: 30s

	// FieldTimeout bounds each individual field query.
	FieldTimeout time.Duration // default: 5s

	// DescriptionSelector locates the plot summary element.
	DescriptionSelector string // default: ".sc-466bb6c-0"

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to well-known ad and tracking domains.
	BlockAds bool // default: true

	// FetchMode is "browser" (always render) or "auto" (race plain HTTP
	// against the browser).
	FetchMode string // default: "browser"
}

// EngineConfig controls the auto fetch mode dispatcher.
type EngineConfig struct {
	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 3s]

	// HTTPTimeout is the deadline for the plain HTTP engine.
	HTTPTimeout time.Duration // default: 8s
}

// CacheConfig controls the scraped-fields cache.
type CacheConfig struct {
	MaxEntries int           // default: 500
	TTL        time.Duration // default: 6h; 0 disables caching
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool   // default: false
	Host    string // default: "0.0.0.0"
	Port    int    // default: 8080
	Mode    string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication for the status server.
type AuthConfig struct {
	// APIKeys is the list of valid API keys. Empty means open access.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting for preview requests.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 1
	Burst             int     // default: 3
}

// WebhookConfig controls replacement notifications.
type WebhookConfig struct {
	// URL receives card.replaced and card.failed events. Empty disables.
	URL string

	// Secret signs each body with HMAC-SHA256 when set.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
// Values from .env files are applied first and never override variables
// already present in the process environment.
func Load() (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Discord: DiscordConfig{
			Token:           os.Getenv("DISCORD_TOKEN"),
			MoviesChannelID: os.Getenv("MOVIES_CHANNEL_ID"),
		},
		Browser: BrowserConfig{
			Headless:      envBoolOr("BROWSER_HEADLESS", true),
			NoSandbox:     envBoolOr("BROWSER_NO_SANDBOX", false),
			BrowserBin:    os.Getenv("BROWSER_BIN"),
			Proxy:         os.Getenv("BROWSER_PROXY"),
			Stealth:       envBoolOr("BROWSER_STEALTH", true),
			MaxConcurrent: envIntOr("BROWSER_MAX_CONCURRENT", 4),
		},
		Scraper: ScraperConfig{
			NavigationTimeout:   envDurationOr("SCRAPER_NAV_TIMEOUT", 30*time.Second),
			FieldTimeout:        envDurationOr("SCRAPER_FIELD_TIMEOUT", 5*time.Second),
			DescriptionSelector: envOr("SCRAPER_DESCRIPTION_SELECTOR", ".sc-466bb6c-0"),
			BlockedResourceTypes: envSliceOr("SCRAPER_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			BlockAds:  envBoolOr("SCRAPER_BLOCK_ADS", true),
			FetchMode: envOr("SCRAPER_FETCH_MODE", "browser"),
		},
		Engine: EngineConfig{
			EscalationDelays: envDurationSliceOr("ENGINE_ESCALATION_DELAYS", []time.Duration{0, 3 * time.Second}),
			HTTPTimeout:      envDurationOr("ENGINE_HTTP_TIMEOUT", 8*time.Second),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("CACHE_MAX_ENTRIES", 500),
			TTL:        envDurationOr("CACHE_TTL", 6*time.Hour),
		},
		Server: ServerConfig{
			Enabled: envBoolOr("API_ENABLED", false),
			Host:    envOr("API_HOST", "0.0.0.0"),
			Port:    envIntOr("API_PORT", 8080),
			Mode:    envOr("API_MODE", "release"),
		},
		Auth: AuthConfig{
			APIKeys: envSliceOr("API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("API_RATE_RPS", 1.0),
			Burst:             envIntOr("API_RATE_BURST", 3),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("WEBHOOK_URL"),
			Secret: os.Getenv("WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing credentials and out-of-range settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Discord.Token == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is required"))
	}
	if c.Discord.MoviesChannelID == "" {
		errs = append(errs, errors.New("MOVIES_CHANNEL_ID is required"))
	}
	if c.Browser.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("BROWSER_MAX_CONCURRENT must be >= 1, got %d", c.Browser.MaxConcurrent))
	}
	switch c.Scraper.FetchMode {
	case "browser", "auto":
	default:
		errs = append(errs, fmt.Errorf("SCRAPER_FETCH_MODE must be browser or auto, got %q", c.Scraper.FetchMode))
	}
	return errors.Join(errs...)
}

// loadEnvFiles loads .env files in priority order:
// ENV_FILE if set (only that file), otherwise .env.local then .env.
// Missing files are not an error.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
