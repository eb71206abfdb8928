package platform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/rank-tracker/internal/entity"
)

var (
	// ErrUnknownPlatform means a task carries a platform tag no scraper was
	// registered for. This is a configuration fault, not a per-task one.
	ErrUnknownPlatform = errors.New("unknown platform tag")
	// ErrNoTargetID means the target identifier could not be derived from the
	// task's link URL.
	ErrNoTargetID = errors.New("could not extract target identifier from link URL")
)

// Scraper encapsulates one marketplace's search-URL template, result-card
// identification rule and pagination convention. The resolver algorithm is
// shared; only these per-variant rules differ.
type Scraper interface {
	// Platform returns the tag this scraper serves.
	Platform() entity.Platform
	// SearchURL builds the search-results URL for a keyword and page number
	// (1-based).
	SearchURL(keyword string, page int) string
	// ExtractIDs returns the candidate identifiers on a rendered page in
	// on-page order, without deduplication against other pages.
	ExtractIDs(doc *goquery.Document) []string
	// TargetID derives the identifier to search for from a task's link URL.
	TargetID(linkURL string) (string, error)
	// MaxTraffic is the engagement-counter cap for slots on this platform.
	MaxTraffic() int
}

// Registry indexes scrapers by platform tag. Dispatch sites consult it once
// per task; adding a marketplace means adding one registry entry.
type Registry struct {
	scrapers map[entity.Platform]Scraper
}

// NewRegistry creates a registry over the given scrapers. A duplicate tag is
// a programming error and fails construction.
func NewRegistry(scrapers ...Scraper) (*Registry, error) {
	m := make(map[entity.Platform]Scraper, len(scrapers))
	for _, s := range scrapers {
		if _, dup := m[s.Platform()]; dup {
			return nil, fmt.Errorf("duplicate scraper for platform %q", s.Platform())
		}
		m[s.Platform()] = s
	}
	return &Registry{scrapers: m}, nil
}

// DefaultRegistry returns a registry with every supported marketplace variant.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		NewCoupangScraper(),
		NewCoupangAppScraper(),
		NewNaverShoppingScraper(),
		NewPlaceScraper(),
	)
	if err != nil {
		panic(err) // static scraper set, cannot collide
	}
	return r
}

// Lookup returns the scraper for a platform tag.
func (r *Registry) Lookup(p entity.Platform) (Scraper, error) {
	s, ok := r.scrapers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
	}
	return s, nil
}

// Validate checks that every listed platform has a scraper, so that a bad
// deployment fails at startup instead of per task.
func (r *Registry) Validate(platforms []entity.Platform) error {
	for _, p := range platforms {
		if _, err := r.Lookup(p); err != nil {
			return err
		}
	}
	return nil
}

// Platforms lists the registered tags in stable order.
func (r *Registry) Platforms() []entity.Platform {
	out := make([]entity.Platform, 0, len(r.scrapers))
	for p := range r.scrapers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
