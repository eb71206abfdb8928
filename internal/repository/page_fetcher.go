package repository

import (
	"context"
	"errors"
)

var (
	ErrPageTimeout      = errors.New("page load timed out")
	ErrNavigationFailed = errors.New("page navigation failed")
)

// PageFetcher renders one search-results page and returns its HTML after
// scripts have produced the listing DOM.
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// BrowserSession owns the lifecycle of a headless browser and hands out one
// page scope per task. The page is released on every exit path, including a
// panic or error inside fn.
type BrowserSession interface {
	WithPage(ctx context.Context, fn func(page PageFetcher) error) error
}
