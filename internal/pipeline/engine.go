package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/coffeemap/internal/cache"
	"github.com/JakeFAU/coffeemap/internal/cafe"
	"github.com/JakeFAU/coffeemap/internal/emit"
	"github.com/JakeFAU/coffeemap/internal/progress"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Config controls Engine behavior.
type Config struct {
	// CacheDir is where the merged cache is persisted.
	CacheDir string
	// RunID tags every progress snapshot; a random one is used when zero.
	RunID [16]byte
	// Clock stamps progress snapshots; the UTC system clock is used when nil.
	Clock Clock
}

// Report summarizes a finished run.
type Report struct {
	Counters cafe.Counters
	// Outcomes holds every resolved record in feed order, duplicates included.
	Outcomes []cafe.Outcome
	// Unique is Outcomes deduplicated by place ID.
	Unique []cafe.Outcome
	// Chunks lists the files written by the emitter.
	Chunks []string
}

// Engine drives one resolution run. Records are pulled and resolved one at a
// time, so there is never more than one lookup in flight.
type Engine struct {
	source   cafe.RecordSource
	resolver *Resolver
	cache    cache.Index
	emitter  *emit.Emitter
	progress progress.Emitter
	clock    Clock
	cfg      Config
	logger   *zap.Logger
}

// NewEngine constructs an Engine. A nil progress emitter discards snapshots.
func NewEngine(
	source cafe.RecordSource,
	resolver *Resolver,
	ix cache.Index,
	emitter *emit.Emitter,
	prog progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prog == nil {
		prog = progress.Discard
	}
	if ix == nil {
		ix = cache.Index{}
	}
	if cfg.RunID == [16]byte{} {
		cfg.RunID = progress.NewRunID()
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	return &Engine{
		source:   source,
		resolver: resolver,
		cache:    ix,
		emitter:  emitter,
		progress: prog,
		clock:    cfg.Clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run consumes the feed until it ends, fails, or ctx is canceled, then
// deduplicates, persists the merged cache, and writes chunk files. The
// finishing steps run whatever stopped the feed; every fatal error is joined
// into the returned error.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	var (
		report  Report
		seq     int64
		stopErr error
	)
	for {
		rec, err := e.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if stop := e.fatalSourceErr(ctx, err); stop != nil {
			stopErr = stop
			break
		}
		var outcome cafe.Outcome
		if err == nil {
			outcome, err = e.resolver.Resolve(ctx, rec, e.cache)
			if err != nil && ctx.Err() != nil {
				// The lookup was cut short; it says nothing about the record.
				stopErr = ctx.Err()
				break
			}
		}
		if err != nil {
			e.logger.Debug("record dropped", zap.String("endpoint", endpointOf(rec)), zap.Error(err))
		} else {
			report.Outcomes = append(report.Outcomes, outcome)
		}
		report.Counters = report.Counters.Apply(outcome, err)
		seq++
		e.progress.Emit(progress.Snapshot{
			RunID:    e.cfg.RunID,
			Seq:      seq,
			TS:       e.clock.Now(),
			Stage:    progress.StageRecord,
			Counters: report.Counters,
		})
	}
	if stopErr != nil {
		e.logger.Warn("crawl feed stopped early; finishing with resolved records",
			zap.Int64("records", seq), zap.Error(stopErr))
	}

	report.Unique = cafe.Dedup(report.Outcomes)

	var persistErr error
	if err := cache.Persist(cache.Merge(e.cache, report.Outcomes), e.cfg.CacheDir); err != nil {
		persistErr = fmt.Errorf("persist cache: %w", err)
	}
	chunks, emitErr := e.emitter.Emit(report.Unique)
	report.Chunks = chunks
	if emitErr != nil {
		emitErr = fmt.Errorf("emit chunks: %w", emitErr)
	}

	e.progress.Emit(progress.Snapshot{
		RunID:    e.cfg.RunID,
		Seq:      seq,
		TS:       e.clock.Now(),
		Stage:    progress.StageDone,
		Counters: report.Counters,
		Chunks:   len(chunks),
	})
	return report, errors.Join(stopErr, persistErr, emitErr)
}

// fatalSourceErr returns the error that ends the pull loop, or nil when err is
// nil or an item-level failure.
func (e *Engine) fatalSourceErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var srcErr *cafe.SourceError
	if errors.As(err, &srcErr) {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, cafe.ErrSourceFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", cafe.ErrSourceFailed, err)
}

func endpointOf(rec cafe.CrawlRecord) string {
	if rec.Endpoint == nil {
		return ""
	}
	return rec.Endpoint.String()
}
