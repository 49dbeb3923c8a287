package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config controls delivery for the Hub.
//   - FlushInterval: minimum gap between two deliveries to the sinks (default 250ms).
//   - SinkTimeout: per-sink timeout while delivering (default 10s).
//   - BaseContext: parent context passed to sink calls (defaults to context.Background()).
//   - Logger: optional structured logger used for warnings.
type Config struct {
	FlushInterval time.Duration
	SinkTimeout   time.Duration
	BaseContext   context.Context
	Logger        *zap.Logger
}

const (
	defaultFlushInterval = 250 * time.Millisecond
	defaultSinkTimeout   = 10 * time.Second
)

// Hub fans snapshots out to registered sinks from a single background
// goroutine. Snapshots carry cumulative counters, so the hub holds only the
// newest record snapshot between deliveries and coalesces the rest. The
// StageDone snapshot has its own slot and is always delivered, after the
// record snapshot pending alongside it. Emit never blocks.
type Hub struct {
	cfg    Config
	sinks  []Sink
	logger *zap.Logger

	mu        sync.Mutex
	latest    *Snapshot
	final     *Snapshot
	coalesced int64

	wake   chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
	closed atomic.Bool

	closeOnce sync.Once
	closeCtx  context.Context
}

// NewHub initializes a Hub and starts the delivery goroutine using the
// supplied sinks. The returned Hub is immediately ready to accept snapshots.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		logger: logger,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go h.run()
	return h
}

// Emit records snap for delivery. A pending record snapshot is replaced by a
// newer one; an older one arriving late is ignored.
func (h *Hub) Emit(snap Snapshot) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := snap.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress snapshot", zap.Error(err))
		return
	}
	h.mu.Lock()
	switch {
	case snap.Stage == StageDone:
		h.final = &snap
	case h.latest == nil:
		h.latest = &snap
	case snap.Seq >= h.latest.Seq:
		h.latest = &snap
		h.coalesced++
	default:
		h.coalesced++
	}
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Close delivers whatever is pending, closes the sinks, and blocks until the
// delivery goroutine exits or ctx ends. Calls after the first are no-ops
// beyond waiting.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stopCh)
	})
	select {
	case <-h.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress hub close wait: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.doneCh)
	var last time.Time
	for {
		select {
		case <-h.wake:
		case <-h.stopCh:
			h.shutdown()
			return
		}
		if wait := h.cfg.FlushInterval - time.Since(last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-h.stopCh:
				timer.Stop()
				h.shutdown()
				return
			}
		}
		h.deliver(h.take())
		last = time.Now()
	}
}

func (h *Hub) shutdown() {
	h.deliver(h.take())
	h.closeSinks()
}

// take empties both slots, returning the record snapshot before the final one.
func (h *Hub) take() []Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	batch := make([]Snapshot, 0, 2)
	if h.latest != nil {
		batch = append(batch, *h.latest)
	}
	if h.final != nil {
		batch = append(batch, *h.final)
	}
	if h.coalesced > 0 {
		h.logger.Debug("progress snapshots coalesced", zap.Int64("count", h.coalesced))
	}
	h.latest, h.final, h.coalesced = nil, nil, 0
	return batch
}

func (h *Hub) deliver(batch []Snapshot) {
	if len(batch) == 0 {
		return
	}
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(h.cfg.BaseContext, h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, append([]Snapshot(nil), batch...)); err != nil {
			h.logger.Warn("progress sink consume failed", zap.Error(err))
		}
		cancel()
	}
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("progress sink close failed", zap.Error(err))
		}
	}
}
