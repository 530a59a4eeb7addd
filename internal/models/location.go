package models

import (
	"math"

	"github.com/cse408-project/secureherai-api/internal/errs"
)

// Location is an immutable latitude/longitude/address triple.
type Location struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Address   string  `json:"address,omitempty" db:"address"`
}

// NewLocation validates coordinate ranges before constructing the value.
func NewLocation(latitude, longitude float64, address string) (Location, error) {
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return Location{}, errs.Validationf("latitude %v out of range [-90,90]", latitude)
	}
	if math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return Location{}, errs.Validationf("longitude %v out of range [-180,180]", longitude)
	}
	return Location{Latitude: latitude, Longitude: longitude, Address: address}, nil
}

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance to another location.
func (l Location) DistanceKm(other Location) float64 {
	lat1 := l.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := (other.Latitude - l.Latitude) * math.Pi / 180
	dLon := (other.Longitude - l.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
