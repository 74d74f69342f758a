package htmlutil

import (
	"bytes"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// GetText concatenates every text node under node.
func GetText(node *nethtml.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *nethtml.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == nethtml.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// NormalizeText decodes html entities (including ones that were escaped
// twice by the source), folds compatibility characters like non-breaking
// spaces to their ascii form, collapses runs of whitespace and trims.
func NormalizeText(s string) string {
	s = html.UnescapeString(html.UnescapeString(s))
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Text is NormalizeText over the text of a selection.
func Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return NormalizeText(sel.Text())
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors returns the normalized text and href of every anchor in sel,
// anchors without an href are skipped.
func GetAnchors(sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	sel.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		anchors = append(anchors, Anchor{
			Name: NormalizeText(GetText(a.Get(0))),
			Href: strings.TrimSpace(href),
		})
	})
	return anchors
}

// Document parses raw into a goquery document.
func Document(raw string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(raw))
}

// ResolveURL resolves ref against base.
func ResolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}
