package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/JakeFAU/coffeemap/internal/cafe"
)

// maxLineBytes bounds a single JSONL line; crawler lines embed full pages.
const maxLineBytes = 64 << 20

// Emit hands one record or item error to the consumer. It blocks until the
// consumer pulls it and returns false once the source is shutting down.
type Emit func(rec cafe.CrawlRecord, err error) bool

// Producer pushes records through emit until its input is exhausted. A nil
// return is a clean end of stream; anything else marks the source failed.
type Producer func(ctx context.Context, emit Emit) error

type item struct {
	rec cafe.CrawlRecord
	err error
}

// Source is a pull-based crawl record feed. The producer runs on its own
// goroutine and hands over records on an unbuffered channel, so it never
// holds more than one decoded record the consumer has not asked for.
type Source struct {
	items  chan item
	cancel context.CancelFunc
	err    error

	closeOnce sync.Once
}

// Start launches produce and returns the Source consuming it.
func Start(ctx context.Context, produce Producer) *Source {
	ctx, cancel := context.WithCancel(ctx)
	s := &Source{
		items:  make(chan item),
		cancel: cancel,
	}
	go func() {
		defer close(s.items)
		s.err = produce(ctx, func(rec cafe.CrawlRecord, err error) bool {
			select {
			case s.items <- item{rec: rec, err: err}:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return s
}

// Next returns the next record. Item-level failures come back as
// *cafe.SourceError and the feed continues. At the end of the feed Next
// returns io.EOF, or an error wrapping cafe.ErrSourceFailed if the producer
// terminated abnormally.
func (s *Source) Next(ctx context.Context) (cafe.CrawlRecord, error) {
	select {
	case <-ctx.Done():
		return cafe.CrawlRecord{}, fmt.Errorf("next crawl record: %w", ctx.Err())
	case it, ok := <-s.items:
		if !ok {
			if s.err != nil {
				return cafe.CrawlRecord{}, fmt.Errorf("%w: %w", cafe.ErrSourceFailed, s.err)
			}
			return cafe.CrawlRecord{}, io.EOF
		}
		return it.rec, it.err
	}
}

// Close stops the producer. A producer blocked handing over a record exits
// at once; one blocked reading its input exits when that read returns.
func (s *Source) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		go func() {
			for range s.items {
			}
		}()
	})
}

// NewReaderSource streams JSONL crawler output from r.
func NewReaderSource(ctx context.Context, r io.Reader) *Source {
	return Start(ctx, func(ctx context.Context, emit Emit) error {
		return scanLines(ctx, r, emit)
	})
}

func scanLines(ctx context.Context, r io.Reader, emit Emit) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		// Blank lines fail to parse and are reported like any malformed line.
		rec, err := ParseLine(scanner.Bytes())
		if !emit(rec, err) {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("crawl feed line exceeds %d bytes: %w", maxLineBytes, err)
		}
		return fmt.Errorf("read crawl feed: %w", err)
	}
	return nil
}
