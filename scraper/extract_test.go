package scraper

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/filmcard/engine"
)

const titlePage = `<!DOCTYPE html>
<html><head>
<title>Heat (1995) - IMDb</title>
<meta property="og:title" content="Heat (1995) ⭐ 8.3 | Action, Crime, Drama">
<meta property="og:image" content="https://m.media-amazon.com/images/heat.jpg">
<meta property="og:description" content="2h 50m | R">
</head><body>
<span class="sc-466bb6c-0">A group of high-end professional thieves start to feel the heat.</span>
</body></html>`

func snapshot(t *testing.T, html string) engine.PageHandle {
	t.Helper()
	snap, err := engine.NewSnapshot(html, "")
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return snap
}

var defaultOpts = FieldOptions{DescriptionSelector: ".sc-466bb6c-0", Timeout: time.Second}

func TestScrapeFields_FullPage(t *testing.T) {
	f := ScrapeFields(context.Background(), snapshot(t, titlePage), defaultOpts)

	if f.Title != "Heat (1995) - IMDb" {
		t.Errorf("Title = %q", f.Title)
	}
	if f.ImageURL != "https://m.media-amazon.com/images/heat.jpg" {
		t.Errorf("ImageURL = %q", f.ImageURL)
	}
	if f.Description != "A group of high-end professional thieves start to feel the heat." {
		t.Errorf("Description = %q", f.Description)
	}
	if f.Rating != "8.3" {
		t.Errorf("Rating = %q, want 8.3", f.Rating)
	}
	if f.Duration != "2h 50m" {
		t.Errorf("Duration = %q, want 2h 50m", f.Duration)
	}
	if want := []string{"Action", "Crime", "Drama"}; !reflect.DeepEqual(f.Genres, want) {
		t.Errorf("Genres = %v, want %v", f.Genres, want)
	}
}

func TestScrapeFields_MissingMeta(t *testing.T) {
	f := ScrapeFields(context.Background(), snapshot(t, `<html><head><title>Bare</title></head><body></body></html>`), defaultOpts)

	if f.Title != "Bare" {
		t.Errorf("Title = %q, want Bare", f.Title)
	}
	if f.ImageURL != "" || f.Description != "" || f.Rating != "" || f.Duration != "" || f.Genres != nil {
		t.Errorf("expected empty fields, got %+v", f)
	}
}

// failingPage returns an error from every query.
type failingPage struct{ calls atomic.Int32 }

func (p *failingPage) Title(context.Context) (string, error) {
	p.calls.Add(1)
	return "", errors.New("target closed")
}
func (p *failingPage) Text(context.Context, string) (string, error) {
	p.calls.Add(1)
	return "", errors.New("target closed")
}
func (p *failingPage) Attr(context.Context, string, string) (string, error) {
	p.calls.Add(1)
	return "", errors.New("target closed")
}
func (p *failingPage) Close() error { return nil }

// panickingPage panics from every query.
type panickingPage struct{}

func (panickingPage) Title(context.Context) (string, error)                { panic("boom") }
func (panickingPage) Text(context.Context, string) (string, error)         { panic("boom") }
func (panickingPage) Attr(context.Context, string, string) (string, error) { panic("boom") }
func (panickingPage) Close() error                                         { return nil }

func TestScrapeFields_AllQueriesFail(t *testing.T) {
	page := &failingPage{}
	f := ScrapeFields(context.Background(), page, defaultOpts)

	if f.Title != "" || f.ImageURL != "" || f.Description != "" || f.Rating != "" || f.Duration != "" || f.Genres != nil {
		t.Errorf("expected all fields empty, got %+v", f)
	}
	if got := page.calls.Load(); got != 6 {
		t.Errorf("queries = %d, want 6", got)
	}
}

func TestScrapeFields_AllQueriesPanic(t *testing.T) {
	f := ScrapeFields(context.Background(), panickingPage{}, defaultOpts)
	if f.Title != "" || f.Genres != nil {
		t.Errorf("expected empty fields, got %+v", f)
	}
}

// slowPage blocks until the query context ends.
type slowPage struct{ failingPage }

func (p *slowPage) Title(ctx context.Context) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestScrapeFields_FieldTimeout(t *testing.T) {
	start := time.Now()
	f := ScrapeFields(context.Background(), &slowPage{}, FieldOptions{Timeout: 20 * time.Millisecond})
	if f.Title != "" {
		t.Errorf("Title = %q, want empty", f.Title)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("ScrapeFields took %v, field timeout not applied", elapsed)
	}
}

func TestTryExtract(t *testing.T) {
	if got := TryExtract(func() (string, error) { return "ok", nil }, "def"); got != "ok" {
		t.Errorf("success: got %q", got)
	}
	if got := TryExtract(func() (string, error) { return "partial", errors.New("x") }, "def"); got != "def" {
		t.Errorf("error: got %q, want def", got)
	}
	if got := TryExtract(func() (int, error) { panic("boom") }, 7); got != 7 {
		t.Errorf("panic: got %d, want 7", got)
	}
}

func TestParseRatingAndGenres(t *testing.T) {
	const ogTitle = "Movie X ⭐ 8.5 | Action, Drama"
	if got := parseRating(ogTitle); got != "8.5" {
		t.Errorf("parseRating = %q, want 8.5", got)
	}
	if got := parseGenres(ogTitle); !reflect.DeepEqual(got, []string{"Action", "Drama"}) {
		t.Errorf("parseGenres = %v", got)
	}

	if got := parseRating("Movie X ⭐ 8 | Action"); got != "" {
		t.Errorf("integer rating: got %q, want empty", got)
	}
	if got := parseRating("Movie X (2024)"); got != "" {
		t.Errorf("no rating: got %q", got)
	}
	if got := parseGenres("Movie X (2024)"); got != nil {
		t.Errorf("no genres: got %v", got)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1h 45m", "1h 45m"},
		{"45m", "45m"},
		{"2h", "2h"},
		{"1h 45m | PG-13", "1h 45m"},
		{"A retired assassin returns.", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in); got != tt.want {
			t.Errorf("parseDuration(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShouldBlock(t *testing.T) {
	blocked := blockedTypeSet([]string{"Image", "Font", "Bogus"})
	if len(blocked) != 2 {
		t.Fatalf("blockedTypeSet kept %d types, want 2", len(blocked))
	}

	tests := []struct {
		name     string
		blockAds bool
		rt       proto.NetworkResourceType
		url      string
		want     bool
	}{
		{"image", false, proto.NetworkResourceTypeImage, "https://m.media-amazon.com/a.jpg", true},
		{"document", true, proto.NetworkResourceTypeDocument, "https://www.imdb.com/title/tt0113277/", false},
		{"script from tracker", true, proto.NetworkResourceTypeScript, "https://c.amazon-adsystem.com/aax2/apstag.js", true},
		{"tracker with ads allowed", false, proto.NetworkResourceTypeScript, "https://c.amazon-adsystem.com/aax2/apstag.js", false},
		{"first party script", true, proto.NetworkResourceTypeScript, "https://dqpnq362acqdi.cloudfront.net/app.js", false},
	}
	for _, tt := range tests {
		if got := shouldBlock(blocked, tt.blockAds, tt.rt, tt.url); got != tt.want {
			t.Errorf("%s: shouldBlock = %v, want %v", tt.name, got, tt.want)
		}
	}
}
