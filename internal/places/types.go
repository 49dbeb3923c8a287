package places

import (
	"errors"
	"slices"

	"github.com/JakeFAU/coffeemap/internal/cafe"
)

// FieldMask lists the response fields requested from the search endpoint.
const FieldMask = "places.displayName,places.id,places.formattedAddress,places.location,places.googleMapsUri,places.types"

type searchRequest struct {
	TextQuery string `json:"textQuery"`
}

type searchResponse struct {
	Places *[]Candidate `json:"places"`
}

// Candidate is one entry of the search response. Pointer fields let decoding
// tell a missing field from a zero value.
type Candidate struct {
	ID               *string      `json:"id"`
	DisplayName      *displayName `json:"displayName"`
	FormattedAddress *string      `json:"formattedAddress"`
	GoogleMapsURI    *string      `json:"googleMapsUri"`
	Location         *location    `json:"location"`
	Types            []string     `json:"types"`
}

type displayName struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Candidate) isCafe() bool {
	for _, want := range cafeCategories {
		if slices.Contains(c.Types, want) {
			return true
		}
	}
	return false
}

func (c Candidate) validate() error {
	var errs []error
	if c.ID == nil || *c.ID == "" {
		errs = append(errs, errors.New("missing id"))
	}
	if c.DisplayName == nil {
		errs = append(errs, errors.New("missing displayName"))
	}
	if c.FormattedAddress == nil {
		errs = append(errs, errors.New("missing formattedAddress"))
	}
	if c.GoogleMapsURI == nil {
		errs = append(errs, errors.New("missing googleMapsUri"))
	}
	if c.Location == nil {
		errs = append(errs, errors.New("missing location"))
	}
	return errors.Join(errs...)
}

// record converts a validated candidate.
func (c Candidate) record() cafe.PlaceRecord {
	rec := cafe.PlaceRecord{
		ID:               *c.ID,
		DisplayName:      c.DisplayName.Text,
		FormattedAddress: *c.FormattedAddress,
		MapURI:           *c.GoogleMapsURI,
		Location: cafe.Location{
			Lat: c.Location.Latitude,
			Lon: c.Location.Longitude,
		},
	}
	for _, t := range c.Types {
		if !slices.Contains(rec.Categories, t) {
			rec.Categories = append(rec.Categories, t)
		}
	}
	return rec
}
