package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/filmcard/engine"
	"github.com/use-agent/filmcard/models"
	"golang.org/x/sync/errgroup"
)

// FieldOptions controls field extraction.
type FieldOptions struct {
	// DescriptionSelector locates the plot summary element.
	DescriptionSelector string

	// Timeout bounds each field query. Zero means only ctx applies.
	Timeout time.Duration
}

// TryExtract runs fn and returns its value, or def if fn fails or panics.
func TryExtract[T any](fn func() (T, error), def T) (v T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("field extractor panicked", "panic", r)
			v = def
		}
	}()
	got, err := fn()
	if err != nil {
		return def
	}
	return got
}

// ScrapeFields queries all six fields from page concurrently and waits for
// every one of them. It never fails: a field that cannot be read is left at
// its zero value.
func ScrapeFields(ctx context.Context, page engine.PageHandle, opts FieldOptions) models.Fields {
	var f models.Fields
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f.Title = scrapeField(gctx, page, opts, "title", getTitle, "")
		return nil
	})
	g.Go(func() error {
		f.ImageURL = scrapeField(gctx, page, opts, "image", getImageURL, "")
		return nil
	})
	g.Go(func() error {
		f.Description = scrapeField(gctx, page, opts, "description", getDescription(opts.DescriptionSelector), "")
		return nil
	})
	g.Go(func() error {
		f.Rating = scrapeField(gctx, page, opts, "rating", getRating, "")
		return nil
	})
	g.Go(func() error {
		f.Duration = scrapeField(gctx, page, opts, "duration", getDuration, "")
		return nil
	})
	g.Go(func() error {
		f.Genres = scrapeField(gctx, page, opts, "genres", getGenres, nil)
		return nil
	})

	_ = g.Wait()
	return f
}

func scrapeField[T any](
	ctx context.Context,
	page engine.PageHandle,
	opts FieldOptions,
	name string,
	get func(context.Context, engine.PageHandle) (T, error),
	def T,
) T {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return TryExtract(func() (T, error) {
		v, err := get(ctx, page)
		if err != nil {
			slog.Debug("field extraction failed", "field", name, "error", err)
		}
		return v, err
	}, def)
}
