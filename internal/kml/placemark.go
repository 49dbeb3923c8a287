package kml

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/JakeFAU/coffeemap/internal/cafe"
)

// ExtendedData keys written on every placemark.
const (
	dataMapURI  = "map_uri"
	dataAddress = "formatted_address"
	dataTypes   = "types"
)

// FromOutcome converts a resolved outcome into a placemark carrying the
// search key and place id as attributes.
func FromOutcome(o cafe.Outcome) Placemark {
	return FromPlace(o.Key.String(), o.Record)
}

// FromPlace converts a place record indexed under searchTerm into a placemark.
func FromPlace(searchTerm string, p cafe.PlaceRecord) Placemark {
	return Placemark{
		SearchTerm:  searchTerm,
		ID:          p.ID,
		Name:        p.DisplayName,
		Description: p.MapURI + "\n\n" + p.FormattedAddress,
		StyleURL:    "#" + CupStyleID,
		ExtendedData: &ExtendedData{Data: []Data{
			{Name: dataMapURI, Value: p.MapURI},
			{Name: dataAddress, Value: p.FormattedAddress},
			{Name: dataTypes, Value: strings.Join(p.Categories, ",")},
		}},
		Point: PointAt(p.Location),
	}
}

// Place rebuilds the place record stored in a placemark. Placemarks written
// without ExtendedData fall back to splitting the description into the map
// URI and the address.
func (p Placemark) Place() (cafe.PlaceRecord, error) {
	if p.ID == "" {
		return cafe.PlaceRecord{}, errors.New("placemark has no id")
	}
	if p.Point == nil {
		return cafe.PlaceRecord{}, fmt.Errorf("placemark %s has no point", p.ID)
	}
	loc, err := p.Point.Location()
	if err != nil {
		return cafe.PlaceRecord{}, fmt.Errorf("placemark %s: %w", p.ID, err)
	}
	rec := cafe.PlaceRecord{
		ID:          p.ID,
		DisplayName: p.Name,
		Location:    loc,
	}
	mapURI, hasURI := p.Value(dataMapURI)
	address, hasAddr := p.Value(dataAddress)
	if !hasURI || !hasAddr {
		mapURI, address = splitDescription(p.Description)
	}
	rec.MapURI = mapURI
	rec.FormattedAddress = address
	if types, ok := p.Value(dataTypes); ok && types != "" {
		rec.Categories = strings.Split(types, ",")
	}
	return rec, nil
}

func splitDescription(desc string) (string, string) {
	desc = strings.TrimSpace(desc)
	uri, rest, _ := strings.Cut(desc, "\n")
	return strings.TrimSpace(uri), strings.TrimSpace(rest)
}

// wgs84 bounds the longitude and latitude of every placemark point.
var wgs84 = geom.NewBounds(geom.XY).Set(-180, -90, 180, 90)

// GeomOf returns loc as a WGS84 point at ground altitude.
func GeomOf(loc cafe.Location) *geom.Point {
	return geom.NewPointFlat(geom.XYZ, []float64{loc.Lon, loc.Lat, 0}).SetSRID(4326)
}

// PointAt returns the point element for loc.
func PointAt(loc cafe.Location) *Point {
	return &Point{Coordinates: formatCoords(GeomOf(loc).FlatCoords())}
}

// Geom parses the point's "lon,lat[,alt]" coordinates. Non-finite values and
// positions outside WGS84 longitude/latitude are rejected.
func (p *Point) Geom() (*geom.Point, error) {
	fields := strings.Split(strings.TrimSpace(p.Coordinates), ",")
	if len(fields) < 2 || len(fields) > 3 {
		return nil, fmt.Errorf("invalid coordinates %q", p.Coordinates)
	}
	coord := make(geom.Coord, 0, 3)
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", f, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite coordinate %q", f)
		}
		coord = append(coord, v)
	}
	if !wgs84.OverlapsPoint(geom.XY, coord) {
		return nil, fmt.Errorf("coordinates %q outside lon/lat range", p.Coordinates)
	}
	layout := geom.XY
	if len(coord) == 3 {
		layout = geom.XYZ
	}
	return geom.NewPointFlat(layout, coord).SetSRID(4326), nil
}

// Location returns the point as a cafe location.
func (p *Point) Location() (cafe.Location, error) {
	pt, err := p.Geom()
	if err != nil {
		return cafe.Location{}, err
	}
	return cafe.Location{Lat: pt.Y(), Lon: pt.X()}, nil
}

// Extent returns the lon/lat bounds of the placemarks with a valid point.
// The bounds are empty when none has one.
func Extent(placemarks []Placemark) *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, pm := range placemarks {
		if pm.Point == nil {
			continue
		}
		if pt, err := pm.Point.Geom(); err == nil {
			b.Extend(pt)
		}
	}
	return b
}

func formatCoords(flat []float64) string {
	parts := make([]string, len(flat))
	for i, v := range flat {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
