package models

import "github.com/bwmarrin/discordgo"

// PreviewResponse is the response for POST /api/v1/preview.
type PreviewResponse struct {
	// Success indicates whether the card was built without errors.
	Success bool `json:"success"`

	// URL is the title page the card links to.
	URL string `json:"url,omitempty"`

	// Fields contains the raw scraped values.
	Fields *Fields `json:"fields,omitempty"`

	// Card is the embed exactly as it would be posted to Discord.
	Card *discordgo.MessageEmbed `json:"card,omitempty"`

	// CacheStatus is "hit" or "miss"; empty when caching is disabled.
	CacheStatus string `json:"cache_status,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// NavigationMs is the time spent launching the browser and loading the page.
	NavigationMs int64 `json:"navigation_ms"`

	// ScrapeMs is the time spent running the field scrapers.
	ScrapeMs int64 `json:"scrape_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	BrowserStats BrowserStats `json:"browser_stats"`
	CacheEntries int          `json:"cache_entries"`
	Version      string       `json:"version"`
}

// BrowserStats reports how many per-invocation browsers are alive.
type BrowserStats struct {
	MaxBrowsers    int `json:"max_browsers"`
	ActiveBrowsers int `json:"active_browsers"`
}
