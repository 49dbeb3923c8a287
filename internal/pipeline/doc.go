// Package pipeline resolves a crawl feed into deduplicated places. The
// Resolver turns one crawl record into a place outcome using the cache or the
// lookup API; the Engine drives the feed through it, folds counters, reports
// progress, and finishes by updating the cache and writing chunk files.
package pipeline
