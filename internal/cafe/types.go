package cafe

import (
	"net/url"
	"slices"
)

// CafeDetails holds the fields extracted from a café page.
type CafeDetails struct {
	Name    string
	Address string
}

// CrawlRecord is one unit of the crawl feed. Details is nil when the page
// body was absent or did not carry both fields.
type CrawlRecord struct {
	Endpoint *url.URL
	Details  *CafeDetails
}

// KeyKind tells how a SearchKey was derived.
type KeyKind int

// Supported key kinds.
const (
	KeyFromDetails KeyKind = iota
	KeyFromURLFragment
)

// String returns the label used in logs and counter names.
func (k KeyKind) String() string {
	switch k {
	case KeyFromDetails:
		return "cafe_details"
	case KeyFromURLFragment:
		return "url"
	default:
		return "unknown"
	}
}

// SearchKey is the canonical lookup and cache identity of a crawl record.
type SearchKey struct {
	Kind  KeyKind
	Value string
}

// String returns the raw key text used for cache indexing and lookups.
func (k SearchKey) String() string {
	return k.Value
}

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64
	Lon float64
}

// PlaceRecord is a resolved, geocoded place. Two records with the same ID
// are the same place.
type PlaceRecord struct {
	ID               string
	DisplayName      string
	FormattedAddress string
	MapURI           string
	Location         Location
	Categories       []string
}

// HasAny reports whether the record's categories intersect wanted.
func (p PlaceRecord) HasAny(wanted ...string) bool {
	for _, c := range p.Categories {
		if slices.Contains(wanted, c) {
			return true
		}
	}
	return false
}

// Origin tags where an Outcome's record came from.
type Origin int

// Outcome origins.
const (
	OriginCached Origin = iota
	OriginQueried
)

// String returns a stable label for the origin.
func (o Origin) String() string {
	switch o {
	case OriginCached:
		return "cached"
	case OriginQueried:
		return "queried"
	default:
		return "unknown"
	}
}

// Outcome is a successfully resolved crawl record.
type Outcome struct {
	Key    SearchKey
	Record PlaceRecord
	Origin Origin
}
