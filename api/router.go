package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/filmcard/api/handler"
	"github.com/use-agent/filmcard/api/middleware"
	"github.com/use-agent/filmcard/config"
)

// NewRouter creates a configured Gin engine for the status API.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if keys configured) → RateLimit
//
// Health endpoint is outside auth so monitoring probes always work.
// cs may be nil when the field cache is disabled.
func NewRouter(sp handler.StatsProvider, pv handler.Previewer, cs handler.CacheSizer, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(sp, cs, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/preview", handler.Preview(pv, cs != nil && cfg.Cache.TTL > 0))

	return r
}
