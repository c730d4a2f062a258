package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/filmcard/card"
	"github.com/use-agent/filmcard/models"
	"github.com/use-agent/filmcard/replacer"
	"github.com/use-agent/filmcard/trigger"
)

// Previewer scrapes a title page. *replacer.Replacer satisfies it.
type Previewer interface {
	Scrape(ctx context.Context, url string) (*replacer.ScrapeResult, error)
}

// previewAuthor attributes cards built through the API.
var previewAuthor = models.Author{Username: "filmcard preview"}

// Preview returns a handler for POST /api/v1/preview.
//
// Orchestration flow:
//  1. Parse & validate request; only title-page URLs are accepted.
//  2. Previewer.Scrape → fields   (records navigation_ms, scrape_ms)
//  3. card.Build → the embed exactly as it would be posted.
//  4. Fill Timing, return 200.
//
// Nothing is posted to or deleted from any chat channel.
func Preview(pv Previewer, cacheEnabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.PreviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err), models.TimingInfo{})
			return
		}
		url, ok := trigger.FindTriggerURL(req.URL)
		if !ok || url != req.URL {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput,
				"url must be an IMDb title page (https://www.imdb.com/title/...)", nil), models.TimingInfo{})
			return
		}

		// ── 2. Scrape ───────────────────────────────────────────────
		res, err := pv.Scrape(c.Request.Context(), url)
		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
			})
			return
		}

		// ── 3. Assemble ─────────────────────────────────────────────
		embed := card.Build(res.Fields, url, previewAuthor)

		// ── 4. Respond ──────────────────────────────────────────────
		resp := models.PreviewResponse{
			Success: true,
			URL:     url,
			Fields:  &res.Fields,
			Card:    embed,
			Timing: models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: res.NavigationMs,
				ScrapeMs:     res.ScrapeMs,
			},
		}
		if cacheEnabled {
			resp.CacheStatus = "miss"
			if res.CacheHit {
				resp.CacheStatus = "hit"
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	scrapeErr := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(scrapeErr), models.PreviewResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeBrowserCrash:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
