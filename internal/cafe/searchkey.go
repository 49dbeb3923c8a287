package cafe

import (
	"net/url"
	"strings"
)

// DeriveKey builds the search key for a crawl record. Extracted page details
// take precedence; otherwise the second path segment of the endpoint is used
// with dashes turned into spaces. Runes that cannot appear in an XML document
// become spaces so the key reads back unchanged from the cache file.
func DeriveKey(record CrawlRecord) (SearchKey, error) {
	if d := record.Details; d != nil {
		value := xmlSafe(d.Name + " " + d.Address)
		if strings.TrimSpace(value) != "" {
			return SearchKey{Kind: KeyFromDetails, Value: value}, nil
		}
	}
	if record.Endpoint == nil {
		return SearchKey{}, &DerivationError{Reason: "record has no endpoint"}
	}
	segments := strings.Split(strings.TrimPrefix(record.Endpoint.EscapedPath(), "/"), "/")
	if len(segments) < 2 {
		return SearchKey{}, &DerivationError{
			Endpoint: record.Endpoint.String(),
			Reason:   "endpoint path has fewer than two segments",
		}
	}
	segment, err := url.PathUnescape(segments[1])
	if err != nil {
		return SearchKey{}, &DerivationError{
			Endpoint: record.Endpoint.String(),
			Reason:   "endpoint path segment is not valid escaping: " + err.Error(),
		}
	}
	fragment := xmlSafe(strings.ReplaceAll(segment, "-", " "))
	if strings.TrimSpace(fragment) == "" {
		return SearchKey{}, &DerivationError{
			Endpoint: record.Endpoint.String(),
			Reason:   "endpoint path segment is empty",
		}
	}
	return SearchKey{Kind: KeyFromURLFragment, Value: fragment}, nil
}

func xmlSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if isXMLChar(r) {
			return r
		}
		return ' '
	}, s)
}

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	default:
		return r >= 0x10000 && r <= 0x10FFFF
	}
}
