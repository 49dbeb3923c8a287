package cache

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/coffeemap/internal/cafe"
	"github.com/JakeFAU/coffeemap/internal/kml"
)

func place(id string, lat, lon float64) cafe.PlaceRecord {
	return cafe.PlaceRecord{
		ID:               id,
		DisplayName:      "Cafe " + id,
		FormattedAddress: id + " Street 1",
		MapURI:           "https://maps.example/?cid=" + id,
		Location:         cafe.Location{Lat: lat, Lon: lon},
		Categories:       []string{"cafe"},
	}
}

func queried(key string, rec cafe.PlaceRecord) cafe.Outcome {
	return cafe.Outcome{
		Key:    cafe.SearchKey{Kind: cafe.KeyFromURLFragment, Value: key},
		Record: rec,
		Origin: cafe.OriginQueried,
	}
}

func writeDoc(t *testing.T, path string, placemarks ...kml.Placemark) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, kml.Encode(f, kml.NewFile("fixture", placemarks)))
}

func TestLoadMissingDirIsEmpty(t *testing.T) {
	t.Parallel()

	ix, err := Load(filepath.Join(t.TempDir(), "nope"), zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, ix)
}

func TestLoadSkipsBadInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := kml.FromPlace("koppi", place("p1", 56.04, 12.69))
	noKey := kml.FromPlace("", place("p2", 1, 2))
	badPoint := kml.FromPlace("broken", place("p3", 1, 2))
	badPoint.Point = &kml.Point{Coordinates: "x,y"}
	writeDoc(t, filepath.Join(dir, "ECT_chunk_0.kml"), good, noKey, badPoint)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.kml"), []byte("<kml><Document>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	ix, err := Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, ix, 1)
	rec, ok := ix.Lookup("koppi")
	require.True(t, ok)
	assert.Equal(t, place("p1", 56.04, 12.69), rec)

	_, ok = ix.Lookup("broken")
	assert.False(t, ok)
}

func TestMergeOverwritesAndPreserves(t *testing.T) {
	t.Parallel()

	old := Index{
		"a": place("1", 1, 1),
		"b": place("2", 2, 2),
	}
	merged := Merge(old, []cafe.Outcome{
		queried("b", place("20", 20, 20)),
		queried("c", place("3", 3, 3)),
	})

	assert.Equal(t, Index{
		"a": place("1", 1, 1),
		"b": place("20", 20, 20),
		"c": place("3", 3, 3),
	}, merged)
	assert.Equal(t, place("2", 2, 2), old["b"], "old index must not change")
	assert.Len(t, old, 2)
}

func TestPersistLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	prior := Index{
		"la cabra":      place("lc", 56.15, 10.2),
		"tim wendelboe": place("tw", 59.92, 10.75),
	}
	require.NoError(t, Persist(prior, dir))

	loaded, err := Load(dir, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, prior, loaded)

	fresh := []cafe.Outcome{
		queried("la cabra", place("lc2", 56.16, 10.21)),
		queried("koppi", place("kp", 56.04, 12.69)),
	}
	require.NoError(t, Persist(Merge(loaded, fresh), dir))

	again, err := Load(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, again, 3)
	for _, o := range fresh {
		assert.Equal(t, o.Record, again[o.Key.String()])
	}
	assert.Equal(t, prior["tim wendelboe"], again["tim wendelboe"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, FileName, entries[0].Name())
}

func TestPersistLoadRoundTripsDerivedKeys(t *testing.T) {
	t.Parallel()

	records := []cafe.CrawlRecord{
		{
			Endpoint: mustURL(t, "https://site.example/cafe/x"),
			Details:  &cafe.CafeDetails{Name: "Kaffe\x0bBar", Address: "Main St\n2nd floor"},
		},
		{Endpoint: mustURL(t, "https://site.example/cafe/tab%09and%01ctrl")},
	}
	ix := Index{}
	var keys []string
	for i, rec := range records {
		key, err := cafe.DeriveKey(rec)
		require.NoError(t, err)
		keys = append(keys, key.String())
		ix[key.String()] = place(fmt.Sprintf("p%d", i), 1, 2)
	}

	dir := t.TempDir()
	require.NoError(t, Persist(ix, dir))
	loaded, err := Load(dir, zap.NewNop())
	require.NoError(t, err)
	for _, key := range keys {
		_, ok := loaded.Lookup(key)
		require.True(t, ok, "key %q did not survive the cache file", key)
	}
	require.Len(t, loaded, len(keys))
}

func TestPersistFailsOnUnwritableTarget(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	err := Persist(Index{"a": place("1", 1, 1)}, file)
	var ioErr *cafe.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, cafe.IOCreateDirectories, ioErr.Kind)
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
