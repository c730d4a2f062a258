package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("MOVIES_CHANNEL_ID", "123")
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Browser.MaxConcurrent != 4 || !cfg.Browser.Headless || !cfg.Browser.Stealth {
		t.Errorf("Browser = %+v", cfg.Browser)
	}
	if cfg.Scraper.NavigationTimeout != 30*time.Second || cfg.Scraper.FieldTimeout != 5*time.Second {
		t.Errorf("Scraper timeouts = %v, %v", cfg.Scraper.NavigationTimeout, cfg.Scraper.FieldTimeout)
	}
	if cfg.Scraper.DescriptionSelector != ".sc-466bb6c-0" || cfg.Scraper.FetchMode != "browser" {
		t.Errorf("Scraper = %+v", cfg.Scraper)
	}
	if cfg.Cache.TTL != 6*time.Hour || cfg.Server.Enabled || cfg.Webhook.URL != "" {
		t.Errorf("unexpected defaults: cache=%+v server=%+v webhook=%+v", cfg.Cache, cfg.Server, cfg.Webhook)
	}
}

func TestLoad_Overrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BROWSER_MAX_CONCURRENT", "2")
	t.Setenv("SCRAPER_BLOCKED_RESOURCES", "Image, Stylesheet,,")
	t.Setenv("ENGINE_ESCALATION_DELAYS", "0s,500ms,bogus")
	t.Setenv("API_KEYS", "a,b")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/filmcard")
	t.Setenv("WEBHOOK_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Browser.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d", cfg.Browser.MaxConcurrent)
	}
	if got := strings.Join(cfg.Scraper.BlockedResourceTypes, "|"); got != "Image|Stylesheet" {
		t.Errorf("BlockedResourceTypes = %q", got)
	}
	if d := cfg.Engine.EscalationDelays; len(d) != 2 || d[1] != 500*time.Millisecond {
		t.Errorf("EscalationDelays = %v", d)
	}
	if len(cfg.Auth.APIKeys) != 2 {
		t.Errorf("APIKeys = %v", cfg.Auth.APIKeys)
	}
	if cfg.Webhook.URL != "https://hooks.example.com/filmcard" || cfg.Webhook.Secret != "s3cret" {
		t.Errorf("Webhook = %+v", cfg.Webhook)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "filmcard.env")
	if err := os.WriteFile(path, []byte("CACHE_TTL=0\nLOG_FORMAT=text\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	// godotenv.Load sets variables directly, so register them for cleanup.
	t.Setenv("CACHE_TTL", "")
	t.Setenv("LOG_FORMAT", "")
	os.Unsetenv("CACHE_TTL")
	os.Unsetenv("LOG_FORMAT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.TTL != 0 || cfg.Log.Format != "text" {
		t.Errorf("Cache.TTL = %v, Log.Format = %q", cfg.Cache.TTL, cfg.Log.Format)
	}
}

func TestValidate(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("BROWSER_MAX_CONCURRENT", "0")
	t.Setenv("SCRAPER_FETCH_MODE", "http")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"DISCORD_TOKEN", "BROWSER_MAX_CONCURRENT", "SCRAPER_FETCH_MODE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
