package mapctl

import "github.com/joeblew999/plat-iftar/internal/service"

// MarkerKind distinguishes stored locations from transient pins.
type MarkerKind string

const (
	MarkerLocation MarkerKind = "location"
	MarkerPending  MarkerKind = "pending"
	MarkerGPS      MarkerKind = "gps"
)

// Marker is one pin for the renderer.
type Marker struct {
	Kind  MarkerKind `json:"kind"`
	ID    string     `json:"id,omitempty"`
	Lat   float64    `json:"lat"`
	Lng   float64    `json:"lng"`
	Color string     `json:"color,omitempty"`
	Emoji string     `json:"emoji,omitempty"`
	Name  string     `json:"name,omitempty"`
}

// BuildMarkers renders one marker per location, colored from the catalog
// with defaults for unknown types, followed by at most one transient
// marker: the pending pin if there is one, otherwise the last GPS fix.
func BuildMarkers(v View, locs []service.Location, catalog *service.Catalog) []Marker {
	if catalog == nil {
		catalog = service.NewCatalog(nil, nil)
	}
	markers := make([]Marker, 0, len(locs)+1)
	for _, l := range locs {
		markers = append(markers, Marker{
			Kind:  MarkerLocation,
			ID:    l.ID,
			Lat:   l.Lat,
			Lng:   l.Lng,
			Color: catalog.Color(l.IftarType),
			Emoji: catalog.Emoji(l.IftarType),
			Name:  l.Name,
		})
	}
	switch {
	case v.PendingPin != nil:
		markers = append(markers, Marker{Kind: MarkerPending, Lat: v.PendingPin.Lat, Lng: v.PendingPin.Lng})
	case v.GPSPosition != nil:
		markers = append(markers, Marker{Kind: MarkerGPS, Lat: v.GPSPosition.Lat, Lng: v.GPSPosition.Lng})
	}
	return markers
}
