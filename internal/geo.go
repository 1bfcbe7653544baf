package internal

import (
	"encoding/json"
	"math"
)

const earthRadiusMeters = 6371008.8

// Coordinates is a last known position reported by a client.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether c is a finite point on the globe.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// ParseCoordinates decodes a raw coords payload. Anything that is not an
// object with two numeric fields yields ok == false.
func ParseCoordinates(raw json.RawMessage) (Coordinates, bool) {
	if len(raw) == 0 {
		return Coordinates{}, false
	}
	var fields struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Coordinates{}, false
	}
	if fields.Latitude == nil || fields.Longitude == nil {
		return Coordinates{}, false
	}
	c := Coordinates{Latitude: *fields.Latitude, Longitude: *fields.Longitude}
	return c, c.Valid()
}

// DistanceMeters is the great-circle (haversine) distance between a and b.
func DistanceMeters(a, b Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(min(h, 1)))
}
