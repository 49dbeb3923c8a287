package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/JakeFAU/coffeemap/internal/cafe"
)

// ParseLine decodes one JSONL line of crawler output. The endpoint is read
// from request.endpoint and page details from the HTML in response.body.
func ParseLine(line []byte) (cafe.CrawlRecord, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(line, &root); err != nil {
		return cafe.CrawlRecord{}, &cafe.SourceError{Kind: cafe.SourceMalformed, Line: string(line), Err: err}
	}
	endpoint, err := parseEndpoint(root)
	if err != nil {
		return cafe.CrawlRecord{}, &cafe.SourceError{Kind: cafe.SourceEndpoint, Line: string(line), Err: err}
	}
	rec := cafe.CrawlRecord{Endpoint: endpoint}
	var body string
	if stringAt(root, &body, "response", "body") {
		rec.Details = ExtractDetails(body)
	}
	return rec, nil
}

func parseEndpoint(root map[string]json.RawMessage) (*url.URL, error) {
	var raw string
	if !stringAt(root, &raw, "request", "endpoint") {
		return nil, errors.New("request.endpoint missing or not a string")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q is not an absolute url", raw)
	}
	return u, nil
}

// stringAt decodes the string at root[object][field] into dst.
func stringAt(root map[string]json.RawMessage, dst *string, object, field string) bool {
	raw, ok := root[object]
	if !ok {
		return false
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil {
		return false
	}
	value, ok := nested[field]
	if !ok {
		return false
	}
	return json.Unmarshal(value, dst) == nil
}
