package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func newCafeSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cafe", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
<a href="/cafe/berlin/blue-bottle/">Blue Bottle</a>
<a href="/cafe/rome/sant-eustachio/">Sant Eustachio</a>
<a href="/about">About</a>
<a href="https://elsewhere.example/cafe/x/">Offsite</a>
</body></html>`)
	})
	mux.HandleFunc("/cafe/berlin/blue-bottle/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1 class="cafe-name">Blue Bottle</h1><div class="cafe-address">Mitte, Berlin</div></body></html>`)
	})
	mux.HandleFunc("/cafe/rome/sant-eustachio/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><p>No details here</p></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>about us</body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCollySourceEmitsMatchingPages(t *testing.T) {
	t.Parallel()

	server := newCafeSite(t)
	src, err := NewCollySource(context.Background(), CollyConfig{
		SeedURL:      server.URL + "/cafe",
		MatchPattern: `.*/cafe/.*`,
		MaxDepth:     2,
	}, nil)
	require.NoError(t, err)
	defer src.Close()

	var paths []string
	details := map[string]bool{}
	for {
		rec, err := src.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		paths = append(paths, rec.Endpoint.Path)
		details[rec.Endpoint.Path] = rec.Details != nil
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"/cafe/berlin/blue-bottle/", "/cafe/rome/sant-eustachio/"}, paths)
	assert.True(t, details["/cafe/berlin/blue-bottle/"])
	assert.False(t, details["/cafe/rome/sant-eustachio/"])
}

func TestCollySourceDepthLimitsCrawl(t *testing.T) {
	t.Parallel()

	server := newCafeSite(t)
	src, err := NewCollySource(context.Background(), CollyConfig{
		SeedURL:      server.URL + "/cafe",
		MatchPattern: `.*/cafe/.*`,
		MaxDepth:     1,
	}, nil)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestCollySourceRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := NewCollySource(context.Background(), CollyConfig{SeedURL: "not a url", MatchPattern: ".*"}, nil)
	assert.Error(t, err)
	_, err = NewCollySource(context.Background(), CollyConfig{SeedURL: "https://example.com", MatchPattern: "("}, nil)
	assert.Error(t, err)
}
