package internal_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scythe504/mission-backend/internal"
)

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
		want internal.Coordinates
	}{
		{name: "valid", raw: `{"latitude": 48.85, "longitude": 2.35}`, ok: true, want: internal.Coordinates{Latitude: 48.85, Longitude: 2.35}},
		{name: "edges", raw: `{"latitude": -90, "longitude": 180}`, ok: true, want: internal.Coordinates{Latitude: -90, Longitude: 180}},
		{name: "latitude out of range", raw: `{"latitude": 91, "longitude": 0}`},
		{name: "longitude out of range", raw: `{"latitude": 0, "longitude": -181}`},
		{name: "missing field", raw: `{"latitude": 10}`},
		{name: "string fields", raw: `{"latitude": "10", "longitude": "20"}`},
		{name: "not an object", raw: `"nowhere"`},
		{name: "empty", raw: ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := internal.ParseCoordinates(json.RawMessage(tt.raw))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCoordinatesValid(t *testing.T) {
	assert.True(t, internal.Coordinates{}.Valid())
	assert.False(t, internal.Coordinates{Latitude: math.NaN()}.Valid())
}

func TestDistanceMeters(t *testing.T) {
	origin := internal.Coordinates{Latitude: 0, Longitude: 0}
	assert.Zero(t, internal.DistanceMeters(origin, origin))

	// One thousandth of a degree of latitude is about 111 m.
	north := internal.Coordinates{Latitude: 0.001, Longitude: 0}
	assert.InDelta(t, 111.2, internal.DistanceMeters(origin, north), 0.5)
	assert.InDelta(t, internal.DistanceMeters(origin, north), internal.DistanceMeters(north, origin), 1e-9)

	// Paris to London, roughly 344 km.
	paris := internal.Coordinates{Latitude: 48.8566, Longitude: 2.3522}
	london := internal.Coordinates{Latitude: 51.5074, Longitude: -0.1278}
	assert.InDelta(t, 343_500, internal.DistanceMeters(paris, london), 2_000)
}
