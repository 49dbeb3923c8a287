package cafe

import (
	"errors"
	"fmt"
)

// ErrSourceFailed marks a crawl feed whose producer terminated abnormally, as
// opposed to reaching the end of its input.
var ErrSourceFailed = errors.New("crawl source failed")

// SourceErrorKind classifies per-line feed failures.
type SourceErrorKind int

// Source error kinds.
const (
	SourceMalformed SourceErrorKind = iota
	SourceEndpoint
)

// SourceError is an item-level feed failure. It never ends the feed.
type SourceError struct {
	Kind SourceErrorKind
	Line string
	Err  error
}

func (e *SourceError) Error() string {
	switch e.Kind {
	case SourceEndpoint:
		return fmt.Sprintf("crawl record endpoint: %v", e.Err)
	default:
		return fmt.Sprintf("malformed crawl record: %v", e.Err)
	}
}

func (e *SourceError) Unwrap() error { return e.Err }

// DerivationError means no search key could be built for a record.
type DerivationError struct {
	Endpoint string
	Reason   string
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derive search key from %s: %s", e.Endpoint, e.Reason)
}

// LookupErrorKind classifies place lookup failures.
type LookupErrorKind int

// Lookup error kinds.
const (
	LookupTransport LookupErrorKind = iota
	LookupNotFound
	LookupMalformed
)

// String returns the label used in logs and counter names.
func (k LookupErrorKind) String() string {
	switch k {
	case LookupTransport:
		return "transport"
	case LookupNotFound:
		return "not_found"
	case LookupMalformed:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// LookupError is returned by place lookups. Status is the HTTP status when
// one was received.
type LookupError struct {
	Kind   LookupErrorKind
	Key    string
	Status int
	Err    error
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("place lookup %s for %q", e.Kind, e.Key)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LookupError) Unwrap() error { return e.Err }

// CacheError reports prior output that could not be read. Load treats it as
// non-fatal for individual files and placemarks.
type CacheError struct {
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("read cache %s: %v", e.Path, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// IOErrorKind classifies output boundary failures.
type IOErrorKind int

// IO error kinds.
const (
	IOCreateDirectories IOErrorKind = iota
	IOFileCreation
	IOWriteEncoding
)

// IOError is a fatal failure writing output or cache documents.
type IOError struct {
	Kind IOErrorKind
	Path string
	Err  error
}

func (e *IOError) Error() string {
	switch e.Kind {
	case IOCreateDirectories:
		return fmt.Sprintf("create directory %s: %v", e.Path, e.Err)
	case IOFileCreation:
		return fmt.Sprintf("create file %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("write %s: %v", e.Path, e.Err)
	}
}

func (e *IOError) Unwrap() error { return e.Err }
