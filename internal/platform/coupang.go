package platform

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/pkg/utils"
)

// CoupangScraper locates products in Coupang web search listings.
type CoupangScraper struct{}

func NewCoupangScraper() *CoupangScraper { return &CoupangScraper{} }

func (s *CoupangScraper) Platform() entity.Platform { return entity.PlatformCoupang }

func (s *CoupangScraper) SearchURL(keyword string, page int) string {
	extra := url.Values{}
	if page > 1 {
		extra.Set("page", fmt.Sprintf("%d", page))
	}
	return utils.SearchURL("https://www.coupang.com/np/search", "q", keyword, extra)
}

// ExtractIDs scans result cards in DOM order. Coupang serves the product id
// either as a data attribute on the card or inside the product link href;
// both shapes appear in the same listing.
func (s *CoupangScraper) ExtractIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find(`li[data-product-id], div[data-product-id], a[href*="/products/"]`).Each(func(i int, sel *goquery.Selection) {
		id := firstAttr(sel, "data-product-id", "data-vendor-item-id", "data-item-id")
		if id == "" {
			if href, ok := linkHref(sel); ok {
				id = utils.CoupangProductID(href)
			}
		}
		if utils.IsNumericID(id) {
			ids = append(ids, id)
		}
	})
	return ids
}

func (s *CoupangScraper) TargetID(linkURL string) (string, error) {
	id := utils.CoupangProductID(linkURL)
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrNoTargetID, linkURL)
	}
	return id, nil
}

func (s *CoupangScraper) MaxTraffic() int { return 120 }

// firstAttr returns the first non-empty attribute among names, checking the
// selection itself and then its card ancestor.
func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := sel.Attr(n); ok && v != "" {
			return v
		}
	}
	return ""
}

// linkHref finds the href on the selection or its first descendant anchor.
func linkHref(sel *goquery.Selection) (string, bool) {
	if href, ok := sel.Attr("href"); ok {
		return href, true
	}
	return sel.Find("a[href]").First().Attr("href")
}
