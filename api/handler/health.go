package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/filmcard/models"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// StatsProvider reports browser usage. *scraper.Scraper satisfies it.
type StatsProvider interface {
	Stats() models.BrowserStats
}

// CacheSizer reports the number of cached titles. *cache.Cache satisfies it.
type CacheSizer interface {
	Len() int
}

// Health returns a handler for GET /api/v1/health.
//
// Reports browser utilisation and degrades status when at least 80% of the
// browser slots are in use. cs may be nil.
func Health(sp StatsProvider, cs CacheSizer, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sp.Stats()

		status := "healthy"
		if stats.MaxBrowsers > 0 && float64(stats.ActiveBrowsers) >= float64(stats.MaxBrowsers)*0.8 {
			status = "degraded"
		}

		entries := 0
		if cs != nil {
			entries = cs.Len()
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			BrowserStats: stats,
			CacheEntries: entries,
			Version:      Version,
		})
	}
}
