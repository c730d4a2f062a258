package scraper

import (
	"context"
	"regexp"
	"strings"

	"github.com/use-agent/filmcard/engine"
)

// Meta tags read from the page head.
const (
	ogImageSelector       = "head > meta[property='og:image']"
	ogTitleSelector       = "head > meta[property='og:title']"
	ogDescriptionSelector = "head > meta[property='og:description']"
)

var (
	// ratingRe matches "⭐ 8.5" in og:title.
	ratingRe = regexp.MustCompile(`⭐\s(\d+\.\d+)`)

	// genresRe captures everything after "| " in og:title.
	genresRe = regexp.MustCompile(`\|\s([^"]+)`)

	// durationRe matches "2h 28m", "2h" or "45m" in og:description.
	durationRe = regexp.MustCompile(`\b(\d+h)? ?(\d+m)?\b`)
)

func getTitle(ctx context.Context, page engine.PageHandle) (string, error) {
	return page.Title(ctx)
}

func getDescription(selector string) func(context.Context, engine.PageHandle) (string, error) {
	return func(ctx context.Context, page engine.PageHandle) (string, error) {
		return page.Text(ctx, selector)
	}
}

func getImageURL(ctx context.Context, page engine.PageHandle) (string, error) {
	return page.Attr(ctx, ogImageSelector, "content")
}

func getRating(ctx context.Context, page engine.PageHandle) (string, error) {
	content, err := page.Attr(ctx, ogTitleSelector, "content")
	if err != nil {
		return "", err
	}
	return parseRating(content), nil
}

func getGenres(ctx context.Context, page engine.PageHandle) ([]string, error) {
	content, err := page.Attr(ctx, ogTitleSelector, "content")
	if err != nil {
		return nil, err
	}
	return parseGenres(content), nil
}

func getDuration(ctx context.Context, page engine.PageHandle) (string, error) {
	content, err := page.Attr(ctx, ogDescriptionSelector, "content")
	if err != nil {
		return "", err
	}
	return parseDuration(content), nil
}

// parseRating returns the decimal following the star glyph, or "".
func parseRating(ogTitle string) string {
	m := ratingRe.FindStringSubmatch(ogTitle)
	if m == nil {
		return ""
	}
	return m[1]
}

// parseGenres splits the comma separated list after "| ". Returns nil when
// the title carries no genre list.
func parseGenres(ogTitle string) []string {
	m := genresRe.FindStringSubmatch(ogTitle)
	if m == nil || m[1] == "" {
		return nil
	}
	parts := strings.Split(m[1], ",")
	genres := make([]string, len(parts))
	for i, p := range parts {
		genres[i] = strings.TrimSpace(p)
	}
	return genres
}

// parseDuration returns the first hour and/or minute run in the text,
// joined with a single space. The pattern is all optional, so it matches
// the empty string at every word boundary; those matches are skipped.
func parseDuration(ogDescription string) string {
	for _, m := range durationRe.FindAllStringSubmatch(ogDescription, -1) {
		if d := strings.TrimSpace(m[1] + " " + m[2]); d != "" {
			return d
		}
	}
	return ""
}
