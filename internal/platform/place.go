package platform

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/rank-tracker/internal/entity"
	"github.com/user/rank-tracker/pkg/utils"
)

// PlaceScraper locates businesses in Naver place search listings.
type PlaceScraper struct{}

func NewPlaceScraper() *PlaceScraper { return &PlaceScraper{} }

func (s *PlaceScraper) Platform() entity.Platform { return entity.PlatformPlace }

func (s *PlaceScraper) SearchURL(keyword string, page int) string {
	extra := url.Values{}
	if page > 1 {
		extra.Set("page", fmt.Sprintf("%d", page))
	}
	return utils.SearchURL("https://m.place.naver.com/place/list", "query", keyword, extra)
}

func (s *PlaceScraper) ExtractIDs(doc *goquery.Document) []string {
	var ids []string
	doc.Find(`li[data-id], li[data-laim-exp-id], a[href*="/place/"]`).Each(func(i int, sel *goquery.Selection) {
		id := firstAttr(sel, "data-id", "data-laim-exp-id")
		if id == "" {
			if href, ok := linkHref(sel); ok {
				id = utils.PlaceID(href)
			}
		}
		if utils.IsNumericID(id) {
			ids = append(ids, id)
		}
	})
	return ids
}

func (s *PlaceScraper) TargetID(linkURL string) (string, error) {
	id := utils.PlaceID(linkURL)
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrNoTargetID, linkURL)
	}
	return id, nil
}

func (s *PlaceScraper) MaxTraffic() int { return 300 }
