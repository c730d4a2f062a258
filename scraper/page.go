package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/filmcard/engine"
	"github.com/use-agent/filmcard/models"
	"github.com/ysmood/gson"
)

// openRod launches a dedicated browser, loads req.URL and returns the live
// page as a PageHandle. Closing the handle tears the browser down.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Browser slot           – bounded by BrowserConfig.MaxConcurrent
//  2. Navigation deadline    – covers launch, connect, navigate and load
//  3. Launch + connect       – stealth launch flags, leakless child process
//  4. Stealth injection      – mask navigator.webdriver etc. (before navigation!)
//  5. Extra headers          – Referer + Accept-Language
//  6. Hijack mount           – block images/fonts/media + ads (before navigation!)
//  7. Navigate + wait        – load event, then DOM stability (best-effort)
//
// Any failure releases everything acquired so far before returning.
func (s *Scraper) openRod(ctx context.Context, req *engine.FetchRequest) (engine.PageHandle, error) {
	// ── 1. Browser slot ───────────────────────────────────────────────
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, categorizeError(err, "waiting for a free browser slot")
	}
	s.activeBrowsers.Add(1)
	rp := &rodPage{release: func() {
		s.activeBrowsers.Add(-1)
		s.slots.Release(1)
	}}

	fail := func(err *models.ScrapeError) (engine.PageHandle, error) {
		if closeErr := rp.Close(); closeErr != nil {
			slog.Warn("cleanup after failed open", "url", req.URL, "error", closeErr)
		}
		return nil, err
	}

	// ── 2. Navigation deadline ────────────────────────────────────────
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.scraperCfg.NavigationTimeout
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// ── 3. Launch + connect ───────────────────────────────────────────
	rp.launcher = s.newLauncher()
	controlURL, err := rp.launcher.Context(navCtx).Launch()
	if err != nil {
		return fail(categorizeLaunchError(err, "failed to launch browser"))
	}
	slog.Debug("browser launched", "controlURL", controlURL, "url", req.URL)

	// The browser is connected without navCtx so its event loop outlives Open.
	rp.browser = rod.New().ControlURL(controlURL)
	if err := rp.browser.Connect(); err != nil {
		rp.browser = nil
		return fail(models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err))
	}

	page, err := rp.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fail(models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to create page", err))
	}
	rp.page = page

	// ── 4. Stealth injection ──────────────────────────────────────────
	if s.browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 5. Extra headers ──────────────────────────────────────────────
	extraHeaders := map[string]string{"Accept-Language": "en-US,en;q=0.9"}
	if u, parseErr := url.Parse(req.URL); parseErr == nil {
		extraHeaders["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	for k, v := range req.Headers {
		extraHeaders[k] = v
	}
	if err := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(extraHeaders)}).Call(page); err != nil {
		slog.Debug("failed to set extra headers", "error", err)
	}

	// ── 6. Hijack mount ───────────────────────────────────────────────
	rp.router = setupHijack(page, s.scraperCfg.BlockedResourceTypes, s.scraperCfg.BlockAds)

	// ── 7. Navigate + wait ────────────────────────────────────────────
	p := page.Context(navCtx)
	if err := p.Navigate(req.URL); err != nil {
		return fail(categorizeError(err, "navigation to title page failed"))
	}
	if err := p.WaitLoad(); err != nil {
		return fail(categorizeError(err, "title page did not finish loading"))
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	return rp, nil
}

// newLauncher builds the Chromium launcher with anti-automation flags.
func (s *Scraper) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(s.browserCfg.Headless).
		NoSandbox(s.browserCfg.NoSandbox)

	if s.browserCfg.BrowserBin != "" {
		l = l.Bin(s.browserCfg.BrowserBin)
	}
	if s.browserCfg.Proxy != "" {
		l = l.Proxy(s.browserCfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// rodPage is a PageHandle backed by a live page in its own browser.
type rodPage struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	release  func()

	closeOnce sync.Once
	closeErr  error
}

func (r *rodPage) Title(ctx context.Context) (string, error) {
	res, err := r.page.Context(ctx).Eval(`() => document.title`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (r *rodPage) Text(ctx context.Context, selector string) (string, error) {
	el, err := r.element(ctx, selector)
	if err != nil {
		return "", err
	}
	// textContent, as Snapshot.Text reports it.
	res, err := el.Context(ctx).Eval(`() => this.textContent`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (r *rodPage) Attr(ctx context.Context, selector, name string) (string, error) {
	el, err := r.element(ctx, selector)
	if err != nil {
		return "", err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", fmt.Errorf("%w: %s[%s]", engine.ErrNoElement, selector, name)
	}
	return *v, nil
}

// element looks up selector once without Rod's retry-until-found polling.
func (r *rodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	has, el, err := r.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", engine.ErrNoElement, selector)
	}
	return el, nil
}

// Close stops request interception, closes the page and the browser, waits
// for the Chromium process to exit and frees the browser slot. The slot is
// freed even when the browser never started. Safe to call
// more than once; only the first call does work.
func (r *rodPage) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		if r.router != nil {
			if err := r.router.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop hijack router: %w", err))
			}
		}
		if r.page != nil {
			if err := r.page.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close page: %w", err))
			}
		}
		browserClosed := false
		if r.browser != nil {
			if err := r.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			} else {
				browserClosed = true
			}
		}
		if r.launcher != nil {
			if err := stopLauncher(r.launcher, browserClosed); err != nil {
				errs = append(errs, err)
			}
		}
		if r.release != nil {
			r.release()
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}

// launcherExitTimeout bounds the wait for the Chromium process to exit.
var launcherExitTimeout = 5 * time.Second

// stopLauncher kills the Chromium process unless the browser already shut
// down over CDP, then removes its profile directory. Launcher.Cleanup blocks
// until the process exits and never returns when the process was not
// started, so it is skipped without a PID and bounded otherwise.
func stopLauncher(l *launcher.Launcher, browserClosed bool) error {
	if l.PID() == 0 {
		return nil
	}
	if !browserClosed {
		l.Kill()
	}
	done := make(chan struct{})
	go func() {
		l.Cleanup()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(launcherExitTimeout):
		return fmt.Errorf("browser process %d did not exit within %s", l.PID(), launcherExitTimeout)
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

// categorizeLaunchError is categorizeError for failures before any page exists.
func categorizeLaunchError(err error, msg string) *models.ScrapeError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	}
	return models.NewScrapeError(models.ErrCodeBrowserCrash, msg, err)
}
