package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/internal/platform"
	"github.com/user/rank-tracker/internal/repository"
	"go.uber.org/zap"
)

// Bounds caps the resources one resolution may spend.
type Bounds struct {
	// MaxPages is the last page number the resolver will fetch.
	MaxPages int
	// MaxCandidates caps the deduplicated union of identifiers.
	MaxCandidates int
	// MinExhaustedDepth is the page depth after which a page contributing no
	// new identifiers means the listing is presumed exhausted.
	MinExhaustedDepth int
	// FailureBudget is the number of consecutive page failures tolerated
	// before the search is aborted.
	FailureBudget int
}

// DefaultBounds matches the production crawl limits.
func DefaultBounds() Bounds {
	return Bounds{
		MaxPages:          20,
		MaxCandidates:     2000,
		MinExhaustedDepth: 15,
		FailureBudget:     3,
	}
}

// Resolver drives a browser page through a paginated search listing and
// locates the target identifier's position. Result pages can re-serve items
// across pagination boundaries, so rank is always the 1-based position in
// the order-preserving deduplicated union of every page seen so far, never
// the page-local position.
type Resolver struct {
	bounds Bounds
	logger *zap.Logger
}

// New creates a resolver with the given bounds.
func New(bounds Bounds, logger *zap.Logger) *Resolver {
	return &Resolver{bounds: bounds, logger: logger}
}

// Resolve runs the search for one task. A nil error with Found=false is the
// normal "not in the listing within bounds" outcome; an error means no page
// could be scanned at all.
func (r *Resolver) Resolve(ctx context.Context, page repository.PageFetcher, scraper platform.Scraper, task *entity.TrackingTask) (*entity.RankResult, error) {
	targetID, err := scraper.TargetID(task.LinkURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	candidates := NewCandidateSet(r.bounds.MaxCandidates)
	consecutiveFailures := 0
	pagesChecked := 0

	for pageNum := 1; pageNum <= r.bounds.MaxPages && !candidates.Full(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		url := scraper.SearchURL(task.Keyword, pageNum)
		doc, err := r.fetchPage(ctx, page, url)
		if err != nil {
			consecutiveFailures++
			r.logger.Warn("page fetch failed",
				zap.String("keyword", task.Keyword),
				zap.Int("page", pageNum),
				zap.Int("consecutive_failures", consecutiveFailures),
				zap.Error(err),
			)
			if consecutiveFailures >= r.bounds.FailureBudget {
				if pagesChecked == 0 {
					return nil, fmt.Errorf("no page could be scanned for %q: %w", task.Keyword, err)
				}
				break
			}
			continue
		}
		consecutiveFailures = 0
		pagesChecked++

		ids := scraper.ExtractIDs(doc)
		added := candidates.Merge(ids)

		r.logger.Debug("page scanned",
			zap.String("keyword", task.Keyword),
			zap.Int("page", pageNum),
			zap.Int("on_page", len(ids)),
			zap.Int("new", added),
			zap.Int("total", candidates.Size()),
		)

		if pos, ok := candidates.PositionOf(targetID); ok {
			rank := pos
			return &entity.RankResult{
				Found:           true,
				Rank:            &rank,
				TargetID:        targetID,
				TotalCandidates: candidates.Size(),
				PagesChecked:    pagesChecked,
				ProcessingTime:  time.Since(start),
			}, nil
		}

		// A page with nothing new past the minimum depth means the listing
		// has been exhausted.
		if added == 0 && candidates.Size() > 0 && pageNum >= r.bounds.MinExhaustedDepth {
			break
		}
	}

	return &entity.RankResult{
		Found:           false,
		Rank:            nil,
		TargetID:        targetID,
		TotalCandidates: candidates.Size(),
		PagesChecked:    pagesChecked,
		ProcessingTime:  time.Since(start),
	}, nil
}

func (r *Resolver) fetchPage(ctx context.Context, page repository.PageFetcher, url string) (*goquery.Document, error) {
	html, err := page.FetchHTML(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}
	return doc, nil
}
