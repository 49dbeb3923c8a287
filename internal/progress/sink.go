package progress

import "context"

// Sink consumes batches of snapshots. Implementations must be safe for
// repeated calls and honor ctx deadlines.
type Sink interface {
	Consume(ctx context.Context, batch []Snapshot) error
	Close(ctx context.Context) error
}

// Emitter publishes individual snapshots; Hub satisfies this interface so the
// engine can remain agnostic about how snapshots are buffered or rendered.
type Emitter interface {
	Emit(snap Snapshot)
}

// Discard is an Emitter that drops every snapshot.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Snapshot) {}
