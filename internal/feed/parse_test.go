package feed

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/coffeemap/internal/cafe"
)

const cafePage = `<html><body>
<h1 class="cafe-name">  Blue Bottle <small>Mitte</small></h1>
<div class="cafe-address">Rosenthaler Str. 1, Berlin</div>
</body></html>`

func TestParseLine(t *testing.T) {
	t.Parallel()

	line := `{"request":{"endpoint":"https://europeancoffeetrip.com/cafe/blue-bottle-berlin/"},"response":{"body":` +
		quote(cafePage) + `}}`
	rec, err := ParseLine([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, "/cafe/blue-bottle-berlin/", rec.Endpoint.Path)
	require.NotNil(t, rec.Details)
	assert.Equal(t, "Blue Bottle", rec.Details.Name)
	assert.Equal(t, "Rosenthaler Str. 1, Berlin", rec.Details.Address)
}

func TestParseLineWithoutBody(t *testing.T) {
	t.Parallel()

	rec, err := ParseLine([]byte(`{"request":{"endpoint":"https://example.com/cafe/x/"}}`))
	require.NoError(t, err)
	assert.Nil(t, rec.Details)
}

func TestParseLineErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		kind cafe.SourceErrorKind
	}{
		{name: "not json", line: `{"request":`, kind: cafe.SourceMalformed},
		{name: "missing request", line: `{"response":{"body":""}}`, kind: cafe.SourceEndpoint},
		{name: "endpoint not string", line: `{"request":{"endpoint":42}}`, kind: cafe.SourceEndpoint},
		{name: "relative endpoint", line: `{"request":{"endpoint":"/cafe/x/"}}`, kind: cafe.SourceEndpoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseLine([]byte(tt.line))
			var srcErr *cafe.SourceError
			require.True(t, errors.As(err, &srcErr), "got %v", err)
			assert.Equal(t, tt.kind, srcErr.Kind)
		})
	}
}

func TestExtractDetails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want *cafe.CafeDetails
	}{
		{name: "complete", body: cafePage, want: &cafe.CafeDetails{Name: "Blue Bottle", Address: "Rosenthaler Str. 1, Berlin"}},
		{name: "empty body", body: "", want: nil},
		{name: "missing address", body: `<h1 class="cafe-name">Only Name</h1>`, want: nil},
		{name: "blank name", body: `<h1 class="cafe-name">  </h1><div class="cafe-address">Somewhere</div>`, want: nil},
		{
			name: "name and address trimmed",
			body: "<h1 class=\"cafe-name\">\n  Koppi \n</h1><div class=\"cafe-address\"> Norra Storgatan 16 </div>",
			want: &cafe.CafeDetails{Name: "Koppi", Address: "Norra Storgatan 16"},
		},
		{
			name: "exact class match only",
			body: `<h1 class="cafe-name big">Styled</h1><div class="cafe-address">Street 2</div>`,
			want: nil,
		},
		{
			name: "nested text",
			body: `<h1 class="cafe-name"><a href="#">Linked Café</a></h1><div class="cafe-address"><span>Via Roma 3</span></div>`,
			want: &cafe.CafeDetails{Name: "Linked Café", Address: "Via Roma 3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractDetails(tt.body))
		})
	}
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
