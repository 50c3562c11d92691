package geo

import (
	"errors"
	"math"
)

// Coordinate is a WGS-84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var (
	ErrInvalidCoordinate  = errors.New("coordinate out of range")
	ErrIdenticalEndpoints = errors.New("start and end are the same point")
)

func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return ErrInvalidCoordinate
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// ValidateEndpoints checks that both points are usable route endpoints.
func ValidateEndpoints(start, end Coordinate) error {
	if err := start.Validate(); err != nil {
		return err
	}
	if err := end.Validate(); err != nil {
		return err
	}
	if start.Lat == end.Lat && start.Lng == end.Lng {
		return ErrIdenticalEndpoints
	}
	return nil
}

const earthRadiusKm = 6371.0

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// DistanceM returns the great-circle distance between two points in meters.
func DistanceM(a, b Coordinate) float64 {
	return HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng) * 1000
}

// BearingDeg returns the initial great-circle bearing from a to b in [0, 360).
func BearingDeg(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLng := radians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return math.Mod(degrees(math.Atan2(y, x))+360, 360)
}

var octants = [8]string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}

// Octant maps a bearing in degrees to one of eight compass directions.
func Octant(bearingDeg float64) string {
	b := math.Mod(math.Mod(bearingDeg, 360)+360, 360)
	idx := int((b + 22.5) / 45)
	return octants[idx%8]
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
