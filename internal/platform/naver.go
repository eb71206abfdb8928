package platform

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/pkg/utils"
)

// NaverShoppingScraper locates products in Naver shopping search listings.
type NaverShoppingScraper struct{}

func NewNaverShoppingScraper() *NaverShoppingScraper { return &NaverShoppingScraper{} }

func (s *NaverShoppingScraper) Platform() entity.Platform { return entity.PlatformNaverShopping }

func (s *NaverShoppingScraper) SearchURL(keyword string, page int) string {
	extra := url.Values{}
	if page > 1 {
		extra.Set("pagingIndex", fmt.Sprintf("%d", page))
	}
	return utils.SearchURL("https://search.shopping.naver.com/search/all", "query", keyword, extra)
}

// ExtractIDs reads the shp contents id Naver stamps on each result card,
// falling back to product/catalog links.
func (s *NaverShoppingScraper) ExtractIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find(`[data-shp-contents-id], a[href*="/products/"], a[href*="/catalog/"]`).Each(func(i int, sel *goquery.Selection) {
		id := firstAttr(sel, "data-shp-contents-id", "data-nv-mid")
		if id == "" {
			if href, ok := linkHref(sel); ok {
				id = utils.NaverProductID(href)
			}
		}
		if utils.IsNumericID(id) {
			ids = append(ids, id)
		}
	})
	return ids
}

func (s *NaverShoppingScraper) TargetID(linkURL string) (string, error) {
	id := utils.NaverProductID(linkURL)
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrNoTargetID, linkURL)
	}
	return id, nil
}

func (s *NaverShoppingScraper) MaxTraffic() int { return 300 }
