package sinks

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/coffeemap/internal/cafe"
	"github.com/JakeFAU/coffeemap/internal/progress"
)

// TestTerminalSinkPrintsFinalTableWhenNotATTY ensures redirected output only gets the summary.
func TestTerminalSinkPrintsFinalTableWhenNotATTY(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewTerminalSink(&buf)
	runID := progress.NewRunID()

	require.NoError(t, sink.Consume(context.Background(), []progress.Snapshot{
		{RunID: runID, Seq: 1, TS: time.Now(), Stage: progress.StageRecord},
	}))
	require.Empty(t, buf.String())

	require.NoError(t, sink.Consume(context.Background(), []progress.Snapshot{
		{RunID: runID, Seq: 3, TS: time.Now(), Stage: progress.StageDone, Chunks: 1, Counters: cafe.Counters{QueriedWithURL: 3}},
	}))
	out := buf.String()
	require.Contains(t, out, "queried_with_url")
	require.Contains(t, out, "chunks")
	require.NotContains(t, out, "\x1b[")
}

// TestTerminalSinkNotLiveForBuffers ensures non-file writers never redraw.
func TestTerminalSinkNotLiveForBuffers(t *testing.T) {
	t.Parallel()
	require.False(t, NewTerminalSink(&bytes.Buffer{}).Live())
}
