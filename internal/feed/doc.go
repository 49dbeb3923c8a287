// Package feed turns crawler output into crawl records. A Source is fed by a
// producer goroutine (a katana process, the built-in colly crawler, or a
// saved JSONL stream) and is consumed strictly one record at a time.
package feed
