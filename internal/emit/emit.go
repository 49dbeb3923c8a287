// Package emit writes resolved places as size-bounded KML chunk files.
package emit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/JakeFAU/coffeemap/internal/cafe"
	"github.com/JakeFAU/coffeemap/internal/kml"
)

// Chunk splits outcomes into consecutive slices of at most size elements,
// preserving order. It panics if size is not positive.
func Chunk(outcomes []cafe.Outcome, size int) [][]cafe.Outcome {
	if size <= 0 {
		panic(fmt.Sprintf("emit: chunk size must be positive, got %d", size))
	}
	chunks := make([][]cafe.Outcome, 0, (len(outcomes)+size-1)/size)
	for start := 0; start < len(outcomes); start += size {
		end := min(start+size, len(outcomes))
		chunks = append(chunks, outcomes[start:end:end])
	}
	return chunks
}

// Emitter writes chunk files named <Prefix>_chunk_<n>.kml into Dir, with n
// counting from zero.
type Emitter struct {
	Dir       string
	Prefix    string
	BatchSize int
	Logger    *zap.Logger
}

// FileName returns the file name of chunk n.
func (e *Emitter) FileName(n int) string {
	return fmt.Sprintf("%s_chunk_%d.kml", e.Prefix, n)
}

// Emit writes every chunk and returns the paths written. On failure the
// chunks already written stay on disk and their paths are still returned.
func (e *Emitter) Emit(outcomes []cafe.Outcome) ([]string, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(e.Dir, 0o750); err != nil {
		return nil, &cafe.IOError{Kind: cafe.IOCreateDirectories, Path: e.Dir, Err: err}
	}
	chunks := Chunk(outcomes, e.BatchSize)
	written := make([]string, 0, len(chunks))
	for n, chunk := range chunks {
		path := filepath.Join(e.Dir, e.FileName(n))
		extent, err := e.writeChunk(path, n, chunk)
		if err != nil {
			return written, err
		}
		written = append(written, path)
		fields := []zap.Field{zap.String("path", path), zap.Int("places", len(chunk))}
		if !extent.IsEmpty() {
			fields = append(fields, zap.Float64s("bbox", []float64{
				extent.Min(0), extent.Min(1), extent.Max(0), extent.Max(1),
			}))
		}
		logger.Debug("wrote chunk", fields...)
	}
	return written, nil
}

// writeChunk writes one chunk document and returns the lon/lat extent of its
// placemarks.
func (e *Emitter) writeChunk(path string, n int, chunk []cafe.Outcome) (*geom.Bounds, error) {
	placemarks := make([]kml.Placemark, 0, len(chunk))
	for _, o := range chunk {
		placemarks = append(placemarks, kml.FromOutcome(o))
	}
	doc := kml.NewFile(fmt.Sprintf("%s places %d", e.Prefix, n), placemarks)
	extent := kml.Extent(placemarks)

	f, err := os.Create(path) // #nosec G304 -- path is built from operator config.
	if err != nil {
		return nil, &cafe.IOError{Kind: cafe.IOFileCreation, Path: path, Err: err}
	}
	if err := kml.Encode(f, doc); err != nil {
		_ = f.Close()
		return nil, &cafe.IOError{Kind: cafe.IOWriteEncoding, Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &cafe.IOError{Kind: cafe.IOWriteEncoding, Path: path, Err: err}
	}
	return extent, nil
}
