package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/coffeemap/internal/progress"
)

// PrometheusSink exports run counters via Prometheus. Counters are cumulative
// in every snapshot, so each one is mirrored into a gauge labelled by name.
type PrometheusSink struct {
	records  prometheus.Gauge
	outcomes *prometheus.GaugeVec
	chunks   prometheus.Gauge
	runsDone prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coffeemap_records_processed",
			Help: "Crawl records folded into the run counters.",
		}),
		outcomes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "coffeemap_record_outcomes",
			Help: "Per-record outcomes partitioned by counter name.",
		}, []string{"counter"}),
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coffeemap_chunks_written",
			Help: "Output chunk files written by the last completed run.",
		}),
		runsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coffeemap_runs_completed_total",
			Help: "Total runs that reached the emit stage.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.records,
		s.outcomes,
		s.chunks,
		s.runsDone,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the gauges from the batch. Only the last snapshot matters
// for gauges, but a StageDone anywhere in the batch is counted.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Snapshot) error {
	for _, snap := range batch {
		s.records.Set(float64(snap.Seq))
		for _, tally := range snap.Counters.Tallies() {
			s.outcomes.WithLabelValues(tally.Name).Set(float64(tally.Value))
		}
		if snap.Stage == progress.StageDone {
			s.chunks.Set(float64(snap.Chunks))
			s.runsDone.Inc()
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
