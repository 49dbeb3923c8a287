package cafe

import (
	"errors"
)

// Counters tallies per-record results for a run. It is a value type: Apply
// returns an updated copy and never mutates the receiver.
type Counters struct {
	CachedWithURL      int64
	CachedWithDetails  int64
	QueriedWithURL     int64
	QueriedWithDetails int64
	LookupTransport    int64
	PlaceNotFound      int64
	MalformedResponse  int64
	SourceMalformed    int64
	SourceEndpoint     int64
	Derivation         int64
	Other              int64
}

// Tally is one named counter value.
type Tally struct {
	Name  string
	Value int64
}

// Apply folds a single record result into the counters. A nil err counts o;
// otherwise the error kind is counted and o is ignored.
func (c Counters) Apply(o Outcome, err error) Counters {
	if err != nil {
		return c.applyErr(err)
	}
	switch o.Origin {
	case OriginCached:
		if o.Key.Kind == KeyFromDetails {
			c.CachedWithDetails++
		} else {
			c.CachedWithURL++
		}
	case OriginQueried:
		if o.Key.Kind == KeyFromDetails {
			c.QueriedWithDetails++
		} else {
			c.QueriedWithURL++
		}
	}
	return c
}

func (c Counters) applyErr(err error) Counters {
	var (
		srcErr    *SourceError
		derivErr  *DerivationError
		lookupErr *LookupError
	)
	switch {
	case errors.As(err, &lookupErr):
		switch lookupErr.Kind {
		case LookupTransport:
			c.LookupTransport++
		case LookupNotFound:
			c.PlaceNotFound++
		case LookupMalformed:
			c.MalformedResponse++
		default:
			c.Other++
		}
	case errors.As(err, &derivErr):
		c.Derivation++
	case errors.As(err, &srcErr):
		if srcErr.Kind == SourceEndpoint {
			c.SourceEndpoint++
		} else {
			c.SourceMalformed++
		}
	default:
		c.Other++
	}
	return c
}

// Resolved is the number of records that produced an outcome.
func (c Counters) Resolved() int64 {
	return c.CachedWithURL + c.CachedWithDetails + c.QueriedWithURL + c.QueriedWithDetails
}

// Failed is the number of records dropped because of an error.
func (c Counters) Failed() int64 {
	return c.LookupTransport + c.PlaceNotFound + c.MalformedResponse +
		c.SourceMalformed + c.SourceEndpoint + c.Derivation + c.Other
}

// Tallies lists every counter in a fixed order.
func (c Counters) Tallies() []Tally {
	return []Tally{
		{Name: "cached_with_url", Value: c.CachedWithURL},
		{Name: "cached_with_cafe_details", Value: c.CachedWithDetails},
		{Name: "queried_with_url", Value: c.QueriedWithURL},
		{Name: "queried_with_cafe_details", Value: c.QueriedWithDetails},
		{Name: "lookup_transport_errors", Value: c.LookupTransport},
		{Name: "place_not_found_errors", Value: c.PlaceNotFound},
		{Name: "malformed_response_errors", Value: c.MalformedResponse},
		{Name: "source_malformed_errors", Value: c.SourceMalformed},
		{Name: "source_endpoint_errors", Value: c.SourceEndpoint},
		{Name: "derivation_errors", Value: c.Derivation},
		{Name: "other_errors", Value: c.Other},
	}
}
