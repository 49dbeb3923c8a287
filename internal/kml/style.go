package kml

// Style identifiers shared by every document. CupStyleID is the style map
// that placemarks reference.
const (
	CupStyleID          = "icon-1534-0288D1"
	cupNormalStyleID    = CupStyleID + "-normal"
	cupHighlightStyleID = CupStyleID + "-highlight"

	cupIconHref  = "https://www.gstatic.com/mapspro/images/stock/503-wht-blank_maps.png"
	cupIconColor = "ffd18802"
)

// NewFile builds a document titled name with the cup styles and placemarks.
func NewFile(name string, placemarks []Placemark) File {
	styles, styleMap := cupStyles()
	return File{
		Xmlns: Namespace,
		Document: Document{
			Name:       name,
			Styles:     styles,
			StyleMaps:  []StyleMap{styleMap},
			Placemarks: placemarks,
		},
	}
}

func cupStyles() ([]Style, StyleMap) {
	styles := []Style{
		iconStyle(cupNormalStyleID, 0.0),
		iconStyle(cupHighlightStyleID, 1.1),
	}
	styleMap := StyleMap{
		ID: CupStyleID,
		Pairs: []Pair{
			{Key: "normal", StyleURL: "#" + cupNormalStyleID},
			{Key: "highlight", StyleURL: "#" + cupHighlightStyleID},
		},
	}
	return styles, styleMap
}

func iconStyle(id string, labelScale float64) Style {
	return Style{
		ID: id,
		IconStyle: &IconStyle{
			Color:     cupIconColor,
			ColorMode: "normal",
			Scale:     1.0,
			Heading:   1.0,
			Icon:      Icon{Href: cupIconHref},
		},
		LabelStyle: &LabelStyle{
			Color:     cupIconColor,
			ColorMode: "normal",
			Scale:     labelScale,
		},
	}
}
