package platform

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/pkg/utils"
)

// CoupangAppScraper locates products in the mobile in-app search listing,
// which uses the m.coupang.com surface and /vm/ product links.
type CoupangAppScraper struct{}

func NewCoupangAppScraper() *CoupangAppScraper { return &CoupangAppScraper{} }

func (s *CoupangAppScraper) Platform() entity.Platform { return entity.PlatformCoupangApp }

func (s *CoupangAppScraper) SearchURL(keyword string, page int) string {
	extra := url.Values{}
	if page > 1 {
		extra.Set("page", fmt.Sprintf("%d", page))
	}
	return utils.SearchURL("https://m.coupang.com/nm/search", "q", keyword, extra)
}

func (s *CoupangAppScraper) ExtractIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find(`li[data-product-id], a[href*="/vm/products/"], a[href*="/vp/products/"]`).Each(func(i int, sel *goquery.Selection) {
		id := firstAttr(sel, "data-product-id", "data-item-id")
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

func (s *CoupangAppScraper) TargetID(linkURL string) (string, error) {
	id := utils.CoupangProductID(linkURL)
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrNoTargetID, linkURL)
	}
	return id, nil
}

func (s *CoupangAppScraper) MaxTraffic() int { return 120 }
