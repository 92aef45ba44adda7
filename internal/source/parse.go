package source

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// text extracts the selection's trimmed text. Downstream normalization
// handles casing and interior whitespace.
func text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

// firstMatch returns the first selector in candidates that matches at
// least one node. Listing markup on these boards shifts between
// layouts, so adapters probe a ranked list instead of pinning one.
func firstMatch(doc *goquery.Document, candidates ...string) *goquery.Selection {
	for _, selector := range candidates {
		if sel := doc.Find(selector); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// absoluteURL resolves href against base. Relative links stay usable;
// anything unparseable comes back empty and is rejected downstream.
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
