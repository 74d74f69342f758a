package htmlutil

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"
)

var urlAttributes = []string{"href", "src", "action"}

var skippedSchemes = []string{"data:", "javascript:", "mailto:", "tel:", "#"}

func isSkipped(ref string) bool {
	lower := strings.ToLower(ref)
	for _, prefix := range skippedSchemes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// AbsolutizeURL resolves ref against base and normalizes the result, refs
// that are not navigable (data uris, fragments, javascript) are returned as is.
func AbsolutizeURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || isSkipped(ref) {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	resolved := base.ResolveReference(parsed)
	return purell.NormalizeURL(
		resolved,
		purell.FlagsSafe|purell.FlagRemoveDotSegments|purell.FlagRemoveDuplicateSlashes,
	)
}

// AbsolutizeDocument rewrites every href, src and action attribute in doc so
// that it points at the source origin.
func AbsolutizeDocument(doc *goquery.Document, base *url.URL) {
	for _, attr := range urlAttributes {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			value, _ := s.Attr(attr)
			s.SetAttr(attr, AbsolutizeURL(base, value))
		})
	}
}

// AbsolutizeHTML parses raw, rewrites relative urls against base and
// serializes it again.
func AbsolutizeHTML(raw string, base *url.URL) (string, error) {
	doc, err := Document(raw)
	if err != nil {
		return "", err
	}
	AbsolutizeDocument(doc, base)
	return doc.Html()
}
