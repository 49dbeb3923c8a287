// Package cache keeps the search-key to place mapping that lets a run reuse
// places resolved by earlier runs. The mapping is loaded once from prior KML
// output, read during the run, and persisted once at the end.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/coffeemap/internal/cafe"
	"github.com/JakeFAU/coffeemap/internal/kml"
)

// FileName is the document Persist writes inside the cache directory.
const FileName = "cache.kml"

const documentTitle = "coffeemap cache"

// Index maps a search key to the place it resolved to.
type Index map[string]cafe.PlaceRecord

// Lookup returns the cached place for key.
func (ix Index) Lookup(key string) (cafe.PlaceRecord, bool) {
	rec, ok := ix[key]
	return rec, ok
}

// Load reads every .kml document in dir and indexes its placemarks by their
// search_term attribute. A missing directory yields an empty index. Files or
// placemarks that cannot be read are logged and skipped; only a directory
// that exists but cannot be listed is an error.
func Load(dir string, logger *zap.Logger) (Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ix := make(Index)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("cache directory not found; starting with an empty cache", zap.String("dir", dir))
			return ix, nil
		}
		return nil, &cafe.CacheError{Path: dir, Err: err}
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".kml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := loadFile(ix, path, logger); err != nil {
			logger.Warn("skipping unreadable cache file", zap.Error(err))
		}
	}
	logger.Info("cache loaded", zap.String("dir", dir), zap.Int("entries", len(ix)))
	return ix, nil
}

func loadFile(ix Index, path string, logger *zap.Logger) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from listing the configured cache dir.
	if err != nil {
		return &cafe.CacheError{Path: path, Err: err}
	}
	defer f.Close() //nolint:errcheck // read-only handle

	doc, err := kml.Decode(f)
	if err != nil {
		return &cafe.CacheError{Path: path, Err: err}
	}
	for _, pm := range doc.Document.Placemarks {
		if pm.SearchTerm == "" {
			logger.Info("cache placemark has no search term", zap.String("file", path), zap.String("id", pm.ID))
			continue
		}
		rec, err := pm.Place()
		if err != nil {
			logger.Warn("skipping malformed cache placemark",
				zap.Error(&cafe.CacheError{Path: path, Err: err}),
				zap.String("search_term", pm.SearchTerm),
			)
			continue
		}
		ix[pm.SearchTerm] = rec
	}
	return nil
}

// Merge returns a new index holding old plus every outcome keyed by its
// search key. Outcomes overwrite same-key entries; old is left untouched.
func Merge(old Index, outcomes []cafe.Outcome) Index {
	merged := make(Index, len(old)+len(outcomes))
	maps.Copy(merged, old)
	for _, o := range outcomes {
		merged[o.Key.String()] = o.Record
	}
	return merged
}

// Persist writes the index as a single document to dir/FileName, creating
// dir if needed. Entries are written in key order.
func Persist(ix Index, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &cafe.IOError{Kind: cafe.IOCreateDirectories, Path: dir, Err: err}
	}
	keys := slices.Sorted(maps.Keys(ix))
	placemarks := make([]kml.Placemark, 0, len(keys))
	for _, k := range keys {
		placemarks = append(placemarks, kml.FromPlace(k, ix[k]))
	}

	target := filepath.Join(dir, FileName)
	tmp, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return &cafe.IOError{Kind: cafe.IOFileCreation, Path: target, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op once renamed

	if err := kml.Encode(tmp, kml.NewFile(documentTitle, placemarks)); err != nil {
		_ = tmp.Close()
		return &cafe.IOError{Kind: cafe.IOWriteEncoding, Path: target, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &cafe.IOError{Kind: cafe.IOWriteEncoding, Path: target, Err: err}
	}
	if err := os.Rename(tmpName, target); err != nil {
		return &cafe.IOError{Kind: cafe.IOFileCreation, Path: target, Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}
