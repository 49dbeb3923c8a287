package pipeline

import (
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/JakeFAU/coffeemap/internal/cafe"
	"github.com/JakeFAU/coffeemap/internal/progress"
)

type sourceItem struct {
	rec cafe.CrawlRecord
	err error
}

type sliceSource struct {
	items []sourceItem
	tail  error
}

func (s *sliceSource) Next(ctx context.Context) (cafe.CrawlRecord, error) {
	if err := ctx.Err(); err != nil {
		return cafe.CrawlRecord{}, err
	}
	if len(s.items) == 0 {
		if s.tail != nil {
			return cafe.CrawlRecord{}, s.tail
		}
		return cafe.CrawlRecord{}, io.EOF
	}
	it := s.items[0]
	s.items = s.items[1:]
	return it.rec, it.err
}

type fakeLookup struct {
	mu      sync.Mutex
	places  map[string]cafe.PlaceRecord
	errs    map[string]error
	queries []string
}

func (f *fakeLookup) Query(_ context.Context, key string) (cafe.PlaceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, key)
	if err, ok := f.errs[key]; ok {
		return cafe.PlaceRecord{}, err
	}
	if p, ok := f.places[key]; ok {
		return p, nil
	}
	return cafe.PlaceRecord{}, &cafe.LookupError{Kind: cafe.LookupNotFound, Key: key}
}

type recordingEmitter struct {
	mu    sync.Mutex
	snaps []progress.Snapshot
}

func (r *recordingEmitter) Emit(s progress.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func urlRecord(raw string) cafe.CrawlRecord {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return cafe.CrawlRecord{Endpoint: u}
}

func detailRecord(raw, name, address string) cafe.CrawlRecord {
	rec := urlRecord(raw)
	rec.Details = &cafe.CafeDetails{Name: name, Address: address}
	return rec
}

func place(id string) cafe.PlaceRecord {
	return cafe.PlaceRecord{
		ID:               id,
		DisplayName:      "Cafe " + id,
		FormattedAddress: id + " Street",
		MapURI:           "https://maps.example/?cid=" + id,
		Location:         cafe.Location{Lat: 10, Lon: 20},
		Categories:       []string{"cafe"},
	}
}
