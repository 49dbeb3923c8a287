// Package progress provides the snapshot primitives, non-blocking hub, and
// emitter interfaces the resolution engine uses to report run progress. The
// hub keeps the newest snapshot between deliveries and fans it out on a
// background goroutine to pluggable sinks: structured logs, Prometheus gauges
// and a terminal table.
package progress
