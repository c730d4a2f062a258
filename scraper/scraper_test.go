package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/use-agent/filmcard/config"
	"github.com/use-agent/filmcard/engine"
	"github.com/use-agent/filmcard/models"
)

func newTestScraper(fetchMode string) *Scraper {
	return NewScraper(
		config.BrowserConfig{MaxConcurrent: 2},
		config.ScraperConfig{
			NavigationTimeout:   time.Second,
			FieldTimeout:        500 * time.Millisecond,
			DescriptionSelector: ".plot",
			FetchMode:           fetchMode,
		},
		config.EngineConfig{HTTPTimeout: time.Second},
	)
}

func TestOpen_BrowserModeUsesRod(t *testing.T) {
	s := newTestScraper("browser")
	defer s.Close()

	var gotReq *engine.FetchRequest
	s.openRodFunc = func(_ context.Context, req *engine.FetchRequest) (engine.PageHandle, error) {
		gotReq = req
		return engine.NewSnapshot("<title>x</title>", "")
	}

	page, err := s.Open(context.Background(), "https://www.imdb.com/title/tt0113277/")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer page.Close()

	if gotReq == nil || gotReq.URL != "https://www.imdb.com/title/tt0113277/" || gotReq.Timeout != time.Second {
		t.Errorf("unexpected fetch request %+v", gotReq)
	}
}

func TestOpen_PropagatesScrapeError(t *testing.T) {
	s := newTestScraper("browser")
	defer s.Close()

	want := models.NewScrapeError(models.ErrCodeNavigation, "navigation failed", errors.New("net::ERR_NAME_NOT_RESOLVED"))
	s.openRodFunc = func(context.Context, *engine.FetchRequest) (engine.PageHandle, error) {
		return nil, want
	}

	_, err := s.Open(context.Background(), "https://www.imdb.com/title/tt0113277/")
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) || scrapeErr.Code != models.ErrCodeNavigation {
		t.Errorf("err = %v, want NAVIGATION_FAILED", err)
	}
}

func TestFieldOptions(t *testing.T) {
	s := newTestScraper("browser")
	defer s.Close()

	opts := s.FieldOptions()
	if opts.DescriptionSelector != ".plot" || opts.Timeout != 500*time.Millisecond {
		t.Errorf("FieldOptions = %+v", opts)
	}
}

func TestStats(t *testing.T) {
	s := newTestScraper("browser")
	defer s.Close()

	stats := s.Stats()
	if stats.MaxBrowsers != 2 || stats.ActiveBrowsers != 0 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestNewScraper_AutoModeBuildsDispatcher(t *testing.T) {
	s := newTestScraper("auto")
	defer s.Close()
	if s.dispatcher == nil || s.memory == nil {
		t.Error("auto fetch mode should configure the dispatcher")
	}

	b := newTestScraper("browser")
	defer b.Close()
	if b.dispatcher != nil {
		t.Error("browser fetch mode should not configure the dispatcher")
	}
}

func TestRodPage_CloseReleasesOnce(t *testing.T) {
	s := newTestScraper("browser")
	defer s.Close()

	if err := s.slots.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	s.activeBrowsers.Add(1)

	releases := 0
	rp := &rodPage{release: func() {
		releases++
		s.activeBrowsers.Add(-1)
		s.slots.Release(1)
	}}
	for i := 0; i < 3; i++ {
		if err := rp.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	if releases != 1 {
		t.Errorf("release ran %d times, want 1", releases)
	}
	if got := s.Stats().ActiveBrowsers; got != 0 {
		t.Errorf("ActiveBrowsers = %d, want 0", got)
	}
}

func TestOpen_LaunchFailureFreesSlot(t *testing.T) {
	s := NewScraper(
		config.BrowserConfig{BrowserBin: "/nonexistent/chrome", Headless: true, MaxConcurrent: 1},
		config.ScraperConfig{NavigationTimeout: 2 * time.Second, FieldTimeout: time.Second},
		config.EngineConfig{},
	)
	defer s.Close()

	// Two attempts with a single slot: the second blocks forever if the
	// first one leaks its slot.
	for i := 0; i < 2; i++ {
		errc := make(chan error, 1)
		go func() {
			page, err := s.Open(context.Background(), "https://www.imdb.com/title/tt0113277/")
			if page != nil {
				page.Close()
			}
			errc <- err
		}()

		select {
		case err := <-errc:
			var scrapeErr *models.ScrapeError
			if !errors.As(err, &scrapeErr) {
				t.Fatalf("attempt %d: err = %v, want ScrapeError", i+1, err)
			}
		case <-time.After(15 * time.Second):
			t.Fatalf("attempt %d: Open did not return; active browsers = %d", i+1, s.Stats().ActiveBrowsers)
		}
		if got := s.Stats().ActiveBrowsers; got != 0 {
			t.Errorf("attempt %d: ActiveBrowsers = %d, want 0", i+1, got)
		}
	}
}

func TestStopLauncher_NotStarted(t *testing.T) {
	start := time.Now()
	if err := stopLauncher(launcher.New(), false); err != nil {
		t.Fatalf("stopLauncher: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("stopLauncher took %s for a launcher that never started", elapsed)
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{context.DeadlineExceeded, models.ErrCodeTimeout},
		{fmt.Errorf("navigate: %w", context.Canceled), models.ErrCodeTimeout},
		{errors.New("net::ERR_CONNECTION_RESET"), models.ErrCodeNavigation},
	}
	for _, tt := range tests {
		if got := categorizeError(tt.err, "msg"); got.Code != tt.code {
			t.Errorf("categorizeError(%v).Code = %s, want %s", tt.err, got.Code, tt.code)
		}
	}
	if got := categorizeLaunchError(errors.New("exec: chromium not found"), "msg"); got.Code != models.ErrCodeBrowserCrash {
		t.Errorf("categorizeLaunchError code = %s, want BROWSER_CRASH", got.Code)
	}
}

func TestToHeadersMap(t *testing.T) {
	m := toHeadersMap(map[string]string{"Accept-Language": "en-US"})
	if got := m["Accept-Language"].Str(); got != "en-US" {
		t.Errorf("header value = %q", got)
	}
}
