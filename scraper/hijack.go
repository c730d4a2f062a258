package scraper

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to Rod protocol resource types.
// Scripts are deliberately absent: the plot summary is rendered client-side.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
}

// trackerDomains are ad and analytics hosts seen on title pages.
var trackerDomains = map[string]struct{}{
	"amazon-adsystem.com":   {},
	"fls-na.amazon.com":     {},
	"unagi.amazon.com":      {},
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googletagservices.com": {},
	"googletagmanager.com":  {},
	"google-analytics.com":  {},
	"scorecardresearch.com": {},
	"quantserve.com":        {},
	"adsrvr.org":            {},
	"adnxs.com":             {},
	"criteo.com":            {},
	"criteo.net":            {},
	"pubmatic.com":          {},
	"rubiconproject.com":    {},
	"casalemedia.com":       {},
	"demdex.net":            {},
	"moatads.com":           {},
	"consensu.org":          {},
}

// isTrackerHost reports whether host or any parent domain is a known tracker.
func isTrackerHost(host string) bool {
	host = strings.ToLower(host)
	for host != "" {
		if _, ok := trackerDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
	return false
}

// blockedTypeSet resolves config names, ignoring unknown entries.
func blockedTypeSet(names []string) map[proto.NetworkResourceType]struct{} {
	set := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		if rt, ok := resourceTypes[name]; ok {
			set[rt] = struct{}{}
		}
	}
	return set
}

// shouldBlock decides the fate of one intercepted request.
func shouldBlock(blocked map[proto.NetworkResourceType]struct{}, blockAds bool, rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := blocked[rt]; ok {
		return true
	}
	if !blockAds {
		return false
	}
	u, err := url.Parse(rawURL)
	return err == nil && isTrackerHost(u.Hostname())
}

// setupHijack intercepts every request on page and fails the ones that
// shouldBlock rejects. Must be mounted before navigation.
//
// Returns nil if there is nothing to block; otherwise the running router,
// which the caller stops when the page is closed.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool) *rod.HijackRouter {
	blocked := blockedTypeSet(blockedTypes)
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if shouldBlock(blocked, blockAds, h.Request.Type(), h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()

	return router
}
