package cafe

import "context"

// RecordSource yields crawl records one at a time. Next returns a
// *SourceError for a bad item (the feed continues), io.EOF once the feed is
// exhausted, and an error wrapping ErrSourceFailed if the producer crashed.
type RecordSource interface {
	Next(ctx context.Context) (CrawlRecord, error)
}

// PlaceLookup resolves a search key against the external place search API.
type PlaceLookup interface {
	Query(ctx context.Context, key string) (PlaceRecord, error)
}

// Cache is a read-only view of previously resolved keys.
type Cache interface {
	Lookup(key string) (PlaceRecord, bool)
}
