// Package kml reads and writes the KML documents used for both the place
// cache and the chunked output: a titled document with the cup icon styles
// and one placemark per resolved place.
package kml

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Namespace is the KML 2.2 namespace written on every document.
const Namespace = "http://www.opengis.net/kml/2.2"

// File is the root <kml> element.
type File struct {
	XMLName  xml.Name `xml:"kml"`
	Xmlns    string   `xml:"xmlns,attr,omitempty"`
	Document Document `xml:"Document"`
}

// Document holds the title, shared styles and placemarks.
type Document struct {
	Name       string      `xml:"name,omitempty"`
	Styles     []Style     `xml:"Style"`
	StyleMaps  []StyleMap  `xml:"StyleMap"`
	Placemarks []Placemark `xml:"Placemark"`
}

// Placemark is one place feature. SearchTerm and ID are carried as
// attributes so prior output can be re-indexed by search key.
type Placemark struct {
	SearchTerm   string        `xml:"search_term,attr,omitempty"`
	ID           string        `xml:"id,attr,omitempty"`
	Name         string        `xml:"name,omitempty"`
	Description  string        `xml:"description,omitempty"`
	StyleURL     string        `xml:"styleUrl,omitempty"`
	ExtendedData *ExtendedData `xml:"ExtendedData,omitempty"`
	Point        *Point        `xml:"Point,omitempty"`
}

// ExtendedData carries untyped name/value pairs.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

// Data is a single ExtendedData entry.
type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

// Point is a KML point geometry; Coordinates is "lon,lat,alt".
type Point struct {
	Coordinates string `xml:"coordinates"`
}

// Style is a shared icon+label style.
type Style struct {
	ID         string      `xml:"id,attr,omitempty"`
	IconStyle  *IconStyle  `xml:"IconStyle,omitempty"`
	LabelStyle *LabelStyle `xml:"LabelStyle,omitempty"`
}

// IconStyle configures the placemark icon.
type IconStyle struct {
	Color     string  `xml:"color,omitempty"`
	ColorMode string  `xml:"colorMode,omitempty"`
	Scale     float64 `xml:"scale"`
	Heading   float64 `xml:"heading"`
	Icon      Icon    `xml:"Icon"`
}

// Icon references the icon image.
type Icon struct {
	Href string `xml:"href"`
}

// LabelStyle configures the placemark label.
type LabelStyle struct {
	Color     string  `xml:"color,omitempty"`
	ColorMode string  `xml:"colorMode,omitempty"`
	Scale     float64 `xml:"scale"`
}

// StyleMap groups a normal and a highlight style under one ID.
type StyleMap struct {
	ID    string `xml:"id,attr,omitempty"`
	Pairs []Pair `xml:"Pair"`
}

// Pair binds a style state to a style URL.
type Pair struct {
	Key      string `xml:"key"`
	StyleURL string `xml:"styleUrl"`
}

// Value returns the ExtendedData entry called name.
func (p Placemark) Value(name string) (string, bool) {
	if p.ExtendedData == nil {
		return "", false
	}
	for _, d := range p.ExtendedData.Data {
		if d.Name == name {
			return d.Value, true
		}
	}
	return "", false
}

// Encode writes f as an indented KML document.
func Encode(w io.Writer, f File) error {
	if f.Xmlns == "" {
		f.Xmlns = Namespace
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write kml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode kml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush kml: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write kml trailer: %w", err)
	}
	return nil
}

// Decode reads one KML document from r.
func Decode(r io.Reader) (File, error) {
	var f File
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode kml: %w", err)
	}
	return f, nil
}
