package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/coffeemap/internal/cafe"
)

// Resolver maps a crawl record to a place outcome.
type Resolver struct {
	lookup cafe.PlaceLookup
	logger *zap.Logger
}

// NewResolver builds a Resolver that queries lookup on cache misses.
func NewResolver(lookup cafe.PlaceLookup, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve derives the search key for rec and returns the cached place for it,
// or the best match from the lookup API. Errors from key derivation and
// lookup are returned unchanged. The cache is never modified.
func (r *Resolver) Resolve(ctx context.Context, rec cafe.CrawlRecord, cache cafe.Cache) (cafe.Outcome, error) {
	key, err := cafe.DeriveKey(rec)
	if err != nil {
		return cafe.Outcome{}, err
	}
	term := key.String()
	if place, ok := cache.Lookup(term); ok {
		return cafe.Outcome{Key: key, Record: place, Origin: cafe.OriginCached}, nil
	}
	r.logger.Debug("cache miss", zap.String("search_term", term), zap.Stringer("kind", key.Kind))
	place, err := r.lookup.Query(ctx, term)
	if err != nil {
		return cafe.Outcome{}, err
	}
	return cafe.Outcome{Key: key, Record: place, Origin: cafe.OriginQueried}, nil
}
