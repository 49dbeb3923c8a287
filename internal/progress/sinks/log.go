package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/coffeemap/internal/progress"
)

// LogSink writes counter snapshots as structured logs. A record snapshot is
// logged when its sequence crosses the next multiple of N, so coalesced
// streams still log about every N records; the final snapshot always is.
type LogSink struct {
	logger *zap.Logger
	every  int64
	logged int64
}

// NewLogSink wires a Zap logger to the sink interface. With every <= 0 only
// the final snapshot is logged.
func NewLogSink(logger *zap.Logger, every int) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger, every: int64(max(every, 0))}
}

// Consume logs the selected snapshots in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Snapshot) error {
	for _, snap := range batch {
		if snap.Stage != progress.StageDone {
			if s.every == 0 || snap.Seq/s.every <= s.logged {
				continue
			}
			s.logged = snap.Seq / s.every
		}
		fields := make([]zap.Field, 0, 16)
		fields = append(fields,
			zap.Stringer("run_id", snap.RunUUID()),
			zap.Int64("seq", snap.Seq),
			zap.Int64("resolved", snap.Counters.Resolved()),
			zap.Int64("failed", snap.Counters.Failed()),
		)
		for _, tally := range snap.Counters.Tallies() {
			fields = append(fields, zap.Int64(tally.Name, tally.Value))
		}
		if snap.Stage == progress.StageDone {
			fields = append(fields, zap.Int("chunks", snap.Chunks))
			s.logger.Info("run complete", fields...)
			continue
		}
		s.logger.Info("progress", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
