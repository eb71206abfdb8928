package utils

import (
	"net/url"
	"regexp"
)

var (
	coupangProductRe = regexp.MustCompile(`/(?:vp/|vm/)?products/(\d+)`)
	naverProductRe   = regexp.MustCompile(`/products/(\d+)`)
	naverCatalogRe   = regexp.MustCompile(`/catalog/(\d+)`)
	placeIDRe        = regexp.MustCompile(`/(?:place|restaurant|hairshop|hospital)/(\d+)`)
	digitsRe         = regexp.MustCompile(`^\d+$`)
)

// CoupangProductID extracts the product number from a Coupang product URL.
// Web and app URL shapes both match.
func CoupangProductID(rawURL string) string {
	if m := coupangProductRe.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// NaverProductID extracts the product or catalog number from a Naver
// shopping URL.
func NaverProductID(rawURL string) string {
	if m := naverProductRe.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	if m := naverCatalogRe.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// PlaceID extracts the place number from a Naver place URL.
func PlaceID(rawURL string) string {
	if m := placeIDRe.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// IsNumericID reports whether s is a bare numeric identifier, the shape
// every marketplace candidate id takes.
func IsNumericID(s string) bool {
	return digitsRe.MatchString(s)
}

// SearchURL builds base?<param>=<keyword> with optional extra query pairs,
// escaping the keyword for non-ASCII search terms.
func SearchURL(base, param, keyword string, extra url.Values) string {
	q := url.Values{}
	q.Set(param, keyword)
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return base + "?" + q.Encode()
}
