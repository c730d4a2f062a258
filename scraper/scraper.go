package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/use-agent/filmcard/config"
	"github.com/use-agent/filmcard/engine"
	"github.com/use-agent/filmcard/models"
	"golang.org/x/sync/semaphore"
)

// Scraper opens title pages for field extraction. Every page it returns
// owns a dedicated browser process, so nothing is shared between callers.
// It is safe for concurrent use.
type Scraper struct {
	browserCfg     config.BrowserConfig
	scraperCfg     config.ScraperConfig
	slots          *semaphore.Weighted
	activeBrowsers atomic.Int32
	dispatcher     *engine.Dispatcher
	memory         *engine.DomainMemory
	openRodFunc    engine.RodFetchFunc
}

// NewScraper prepares a Scraper. No browser is launched until Open.
// In "auto" fetch mode a dispatcher races a plain HTTP fetch against the
// browser and remembers the winner per domain.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, engineCfg config.EngineConfig) *Scraper {
	maxBrowsers := browserCfg.MaxConcurrent
	if maxBrowsers < 1 {
		maxBrowsers = 1
	}
	s := &Scraper{
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		slots:      semaphore.NewWeighted(int64(maxBrowsers)),
	}
	s.openRodFunc = s.openRod

	if scraperCfg.FetchMode == "auto" {
		httpEngine := engine.NewHTTPEngine(engineCfg.HTTPTimeout)
		rodEngine := engine.NewRodEngine(s.openRodFunc)
		s.memory = engine.NewDomainMemory(24 * time.Hour)
		s.dispatcher = engine.NewDispatcher(
			[]engine.Engine{httpEngine, rodEngine},
			engineCfg.EscalationDelays,
			s.memory,
		)
		slog.Info("multi-engine dispatcher enabled",
			"engines", 2,
			"delays", engineCfg.EscalationDelays,
			"httpTimeout", engineCfg.HTTPTimeout,
		)
	}
	return s
}

// Open loads url and returns a handle for field queries. The caller must
// Close the handle on every path. Failures are *models.ScrapeError.
func (s *Scraper) Open(ctx context.Context, url string) (engine.PageHandle, error) {
	req := &engine.FetchRequest{
		URL:     url,
		Timeout: s.scraperCfg.NavigationTimeout,
	}
	if s.dispatcher == nil {
		return s.openRodFunc(ctx, req)
	}

	page, err := s.dispatcher.Dispatch(ctx, req)
	if err != nil {
		var scrapeErr *models.ScrapeError
		if errors.As(err, &scrapeErr) {
			return nil, scrapeErr
		}
		return nil, categorizeError(err, "all fetch engines failed")
	}
	return page, nil
}

// FieldOptions returns the extraction settings derived from configuration.
func (s *Scraper) FieldOptions() FieldOptions {
	return FieldOptions{
		DescriptionSelector: s.scraperCfg.DescriptionSelector,
		Timeout:             s.scraperCfg.FieldTimeout,
	}
}

// Stats returns a snapshot of browser usage.
func (s *Scraper) Stats() models.BrowserStats {
	return models.BrowserStats{
		MaxBrowsers:    s.browserCfg.MaxConcurrent,
		ActiveBrowsers: int(s.activeBrowsers.Load()),
	}
}

// Close stops background work. Pages already handed out stay valid and
// must still be closed by their owners.
func (s *Scraper) Close() {
	if s.memory != nil {
		s.memory.Stop()
	}
	slog.Info("scraper shutdown complete")
}
