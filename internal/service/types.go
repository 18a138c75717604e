// Package service contains business logic for plat-iftar: the location
// model, its validation and error taxonomy, the option catalog, and the
// change-event bus.
package service

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

// LocationFields is the writable part of a Location.
// Huma reads the json/doc tags for OpenAPI; the validate tags run in the
// service before any store call.
type LocationFields struct {
	Name      string  `json:"name" required:"true" minLength:"1" maxLength:"120" doc:"Display name of the distributing organisation" example:"Test Mosque" validate:"notblank,max=120"`
	Area      string  `json:"area,omitempty" maxLength:"120" doc:"Optional area label" example:"Kazla" validate:"max=120"`
	IftarType string  `json:"iftarType" required:"true" doc:"Iftar type catalog key" example:"mosque" validate:"required"`
	Audience  string  `json:"audience" required:"true" doc:"Audience catalog key" example:"everyone" validate:"required"`
	Lat       float64 `json:"lat" minimum:"-90" maximum:"90" doc:"Latitude in degrees" example:"24.37" validate:"latitude"`
	Lng       float64 `json:"lng" minimum:"-180" maximum:"180" doc:"Longitude in degrees" example:"88.6" validate:"longitude"`
	Date      string  `json:"date" required:"true" format:"date" doc:"Distribution date (YYYY-MM-DD)" example:"2026-03-01" validate:"isodate"`
}

// Location is one iftar distribution spot.
type Location struct {
	ID        string    `json:"id" doc:"Unique location identifier" example:"7f1c2d7e-1a52-4a69-9a0e-4c1d2b7d9f10"`
	Name      string    `json:"name" doc:"Display name" example:"Test Mosque"`
	Area      string    `json:"area,omitempty" doc:"Area label" example:"Kazla"`
	IftarType string    `json:"iftarType" doc:"Iftar type catalog key" example:"mosque"`
	Audience  string    `json:"audience" doc:"Audience catalog key" example:"everyone"`
	Lat       float64   `json:"lat" doc:"Latitude in degrees" example:"24.37"`
	Lng       float64   `json:"lng" doc:"Longitude in degrees" example:"88.6"`
	Date      string    `json:"date" format:"date" doc:"Distribution date" example:"2026-03-01"`
	CreatedAt time.Time `json:"createdAt" doc:"Creation timestamp (UTC)"`
}

// Fields returns the writable part of l.
func (l Location) Fields() LocationFields {
	return LocationFields{
		Name:      l.Name,
		Area:      l.Area,
		IftarType: l.IftarType,
		Audience:  l.Audience,
		Lat:       l.Lat,
		Lng:       l.Lng,
		Date:      l.Date,
	}
}

// Coordinate returns the location's position.
func (l Location) Coordinate() Coordinate {
	return Coordinate{Lat: l.Lat, Lng: l.Lng}
}

// ListFilter narrows a List call. Nil fields do not filter.
// Results are always ordered by creation time, newest first.
type ListFilter struct {
	Date          *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// ForDate is a filter on the distribution date only.
func ForDate(date string) ListFilter {
	return ListFilter{Date: &date}
}

// CreatedSince is a filter on creation time only.
func CreatedSince(t time.Time) ListFilter {
	return ListFilter{CreatedAfter: &t}
}

// Matches reports whether l passes the filter.
func (f ListFilter) Matches(l Location) bool {
	if f.Date != nil && l.Date != *f.Date {
		return false
	}
	if f.CreatedAfter != nil && l.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && l.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	return true
}

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether c is a finite lat/lng pair within range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Point converts c to an orb point (lng, lat order).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}
