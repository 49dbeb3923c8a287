// Package cafe defines the domain types shared by the resolution pipeline:
// crawl records, search keys, place records, resolution outcomes, the error
// taxonomy, and the counters folded over a run.
package cafe
