package engine

import (
	"context"
	"errors"
	"time"
)

// ErrNoElement is returned by PageHandle queries when the selector matches
// nothing or the attribute is absent.
var ErrNoElement = errors.New("engine: no element matches selector")

// PageHandle is a loaded page that can be queried for DOM and meta content.
// The caller that obtained a handle owns it and must call Close exactly once.
// Queries may run concurrently.
type PageHandle interface {
	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// Text returns the text content of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)

	// Attr returns the named attribute of the first element matching selector.
	Attr(ctx context.Context, selector, name string) (string, error)

	// Close releases the page and everything that was started to load it.
	Close() error
}

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "rod").
	Name() string

	// Fetch loads the page for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (PageHandle, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}
