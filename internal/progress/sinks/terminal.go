package sinks

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/mattn/go-isatty"

	"github.com/JakeFAU/coffeemap/internal/progress"
)

// TerminalSink renders the latest counters as a table. On a TTY the table is
// redrawn in place; otherwise only the final snapshot is printed.
type TerminalSink struct {
	mu    sync.Mutex
	out   io.Writer
	live  bool
	lines int
}

// NewTerminalSink writes to out. Pass os.Stderr (or any *os.File) to enable
// in-place redraws when it is a terminal.
func NewTerminalSink(out io.Writer) *TerminalSink {
	live := false
	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		live = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return &TerminalSink{out: out, live: live}
}

// Live reports whether the table is redrawn in place.
func (s *TerminalSink) Live() bool {
	return s.live
}

// Consume draws the most recent snapshot in the batch.
func (s *TerminalSink) Consume(_ context.Context, batch []progress.Snapshot) error {
	if len(batch) == 0 {
		return nil
	}
	last := batch[len(batch)-1]
	if !s.live && last.Stage != progress.StageDone {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live && s.lines > 0 {
		// Move the cursor up over the previous table and clear to the end.
		if _, err := fmt.Fprintf(s.out, "\x1b[%dA\x1b[J", s.lines); err != nil {
			return fmt.Errorf("redraw progress table: %w", err)
		}
	}
	n, err := s.render(last)
	if err != nil {
		return err
	}
	s.lines = n
	return nil
}

func (s *TerminalSink) render(snap progress.Snapshot) (int, error) {
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	lines := 0
	row := func(name string, value int64) {
		fmt.Fprintf(tw, "%s\t%d\t\n", name, value)
		lines++
	}
	row("records", snap.Seq)
	for _, tally := range snap.Counters.Tallies() {
		row(tally.Name, tally.Value)
	}
	if snap.Stage == progress.StageDone {
		row("chunks", int64(snap.Chunks))
	}
	if err := tw.Flush(); err != nil {
		return 0, fmt.Errorf("write progress table: %w", err)
	}
	return lines, nil
}

// Close implements the Sink interface; it performs no action.
func (s *TerminalSink) Close(context.Context) error {
	return nil
}
