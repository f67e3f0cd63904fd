// Package model defines the shared types for geocoded houses, amenities and match results.
package model

import "math"

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both components are finite.
func (c Coordinate) Valid() bool {
	return isFinite(c.Latitude) && isFinite(c.Longitude)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// LocatedEntity is a named point: a house address or an amenity name.
type LocatedEntity struct {
	ID string `json:"id"`
	Coordinate
}

// NewLocatedEntity builds a LocatedEntity from an identifier and a lat/lon pair.
func NewLocatedEntity(id string, lat, lon float64) LocatedEntity {
	return LocatedEntity{ID: id, Coordinate: Coordinate{Latitude: lat, Longitude: lon}}
}

// ResaleRecord is one row of the HDB resale transaction dataset.
type ResaleRecord struct {
	Month             string  `json:"month"`
	Town              string  `json:"town"`
	FlatType          string  `json:"flat_type"`
	Block             string  `json:"block"`
	StreetName        string  `json:"street_name"`
	StoreyRange       string  `json:"storey_range"`
	FloorAreaSqm      float64 `json:"floor_area_sqm"`
	FlatModel         string  `json:"flat_model"`
	LeaseCommenceDate int     `json:"lease_commence_date"`
	RemainingLease    string  `json:"remaining_lease"`
	ResalePrice       float64 `json:"resale_price"`
}

// GeocodedAddress is the persisted output of a geocoding run.
type GeocodedAddress struct {
	Address string
	Coordinate
	Source string
	Label  string
}
