package engine

import (
	"context"
	"fmt"
)

// RodFetchFunc is the callback type that wraps the scraper's browser path.
// It is injected from the scraper to avoid an import cycle (engine/ -> scraper/).
type RodFetchFunc func(ctx context.Context, req *FetchRequest) (PageHandle, error)

// RodEngine is a browser-based engine that delegates to the rod scraper
// logic via a callback function.
type RodEngine struct {
	fetchFunc RodFetchFunc
}

// NewRodEngine creates a RodEngine around fetchFunc.
func NewRodEngine(fetchFunc RodFetchFunc) *RodEngine {
	return &RodEngine{fetchFunc: fetchFunc}
}

func (e *RodEngine) Name() string { return "rod" }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (PageHandle, error) {
	if e.fetchFunc == nil {
		return nil, fmt.Errorf("%s: fetchFunc not configured", e.Name())
	}
	page, err := e.fetchFunc(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), err)
	}
	return page, nil
}
