package cafe

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersApplyIsPure(t *testing.T) {
	t.Parallel()

	var zero Counters
	next := zero.Apply(Outcome{Key: SearchKey{Kind: KeyFromDetails}, Origin: OriginCached}, nil)
	assert.Equal(t, Counters{}, zero)
	assert.Equal(t, int64(1), next.CachedWithDetails)
}

func TestCountersApply(t *testing.T) {
	t.Parallel()

	details := SearchKey{Kind: KeyFromDetails, Value: "x"}
	fragment := SearchKey{Kind: KeyFromURLFragment, Value: "y"}

	var c Counters
	c = c.Apply(Outcome{Key: details, Origin: OriginCached}, nil)
	c = c.Apply(Outcome{Key: fragment, Origin: OriginCached}, nil)
	c = c.Apply(Outcome{Key: fragment, Origin: OriginQueried}, nil)
	c = c.Apply(Outcome{Key: details, Origin: OriginQueried}, nil)
	c = c.Apply(Outcome{Key: details, Origin: OriginQueried}, nil)
	c = c.Apply(Outcome{}, &LookupError{Kind: LookupTransport, Key: "x", Status: 503})
	c = c.Apply(Outcome{}, fmt.Errorf("resolve: %w", &LookupError{Kind: LookupNotFound}))
	c = c.Apply(Outcome{}, &LookupError{Kind: LookupMalformed})
	c = c.Apply(Outcome{}, &SourceError{Kind: SourceMalformed})
	c = c.Apply(Outcome{}, &SourceError{Kind: SourceEndpoint})
	c = c.Apply(Outcome{}, &DerivationError{Reason: "short"})
	c = c.Apply(Outcome{}, errors.New("boom"))

	assert.Equal(t, Counters{
		CachedWithURL:      1,
		CachedWithDetails:  1,
		QueriedWithURL:     1,
		QueriedWithDetails: 2,
		LookupTransport:    1,
		PlaceNotFound:      1,
		MalformedResponse:  1,
		SourceMalformed:    1,
		SourceEndpoint:     1,
		Derivation:         1,
		Other:              1,
	}, c)
	assert.Equal(t, int64(5), c.Resolved())
	assert.Equal(t, int64(7), c.Failed())
	assert.Len(t, c.Tallies(), 11)
}
