package values

import (
	"fmt"
	"math"
)

const earthRadiusMiles = 3958.8

// Coordinate is a WGS84 latitude/longitude pair. GPS pings and geocoded
// fuel-stop or job-site locations all reduce to this type.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate validates and creates a coordinate
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	if lat < -90 || lat > 90 {
		return Coordinate{}, fmt.Errorf("latitude %f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return Coordinate{}, fmt.Errorf("longitude %f out of range [-180, 180]", lon)
	}
	return Coordinate{Latitude: lat, Longitude: lon}, nil
}

// MustNewCoordinate creates a coordinate and panics on error (for tests)
func MustNewCoordinate(lat, lon float64) Coordinate {
	c, err := NewCoordinate(lat, lon)
	if err != nil {
		panic(err)
	}
	return c
}

// IsZero reports whether the coordinate is the unset zero value. (0,0) is in
// the Gulf of Guinea and never a valid fleet location.
func (c Coordinate) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

// DistanceMiles returns the great-circle distance to other in statute miles
// using the haversine formula.
func (c Coordinate) DistanceMiles(other Coordinate) float64 {
	lat1 := c.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := (other.Latitude - c.Latitude) * math.Pi / 180
	dLon := (other.Longitude - c.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// WithinMiles reports whether other is within maxMiles of this coordinate.
func (c Coordinate) WithinMiles(other Coordinate, maxMiles float64) bool {
	return c.DistanceMiles(other) <= maxMiles
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.5f, %.5f)", c.Latitude, c.Longitude)
}
