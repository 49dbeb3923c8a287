package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/coffeemap/internal/cafe"
)

// Selectors for the café detail fields on a café page.
const (
	NameSelector    = `h1[class="cafe-name"]`
	AddressSelector = `div[class="cafe-address"]`
)

// ExtractDetails pulls the café name and address out of a page body. Each
// field is the first non-blank text node under the first matching element. It returns
// nil unless both fields are present and non-blank.
func ExtractDetails(body string) *cafe.CafeDetails {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}
	name := firstText(doc.Find(NameSelector).First())
	address := firstText(doc.Find(AddressSelector).First())
	if name == "" || address == "" {
		return nil
	}
	return &cafe.CafeDetails{Name: name, Address: address}
}

func firstText(sel *goquery.Selection) string {
	for _, n := range sel.Nodes {
		if text, ok := firstTextNode(n); ok {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

func firstTextNode(n *html.Node) (string, bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return c.Data, true
		}
		if text, ok := firstTextNode(c); ok {
			return text, true
		}
	}
	return "", false
}
