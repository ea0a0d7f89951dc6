// Package geo holds the distance primitives shared by the similarity engine
// and the search surface.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadiusMeters = 6371000.0

// ErrInvalidDistance is returned for malformed distance tokens or units.
var ErrInvalidDistance = errors.New("invalid distance")

// ErrInvalidCoordinates is returned for out-of-range or partial coordinates.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// HaversineMeters returns the great-circle distance between two WGS84 points.
func HaversineMeters(lng1, lat1, lng2, lat2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ValidateCoordinates checks lng/lat ranges.
func ValidateCoordinates(lng, lat float64) error {
	if math.IsNaN(lng) || math.IsNaN(lat) {
		return fmt.Errorf("%w: coordinates must be numeric", ErrInvalidCoordinates)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinates, lng)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinates, lat)
	}
	return nil
}

// ToMeters converts a distance value with a unit ("km" or "m", case
// insensitive) into meters.
func ToMeters(value float64, unit string) (float64, error) {
	if math.IsNaN(value) || value <= 0 {
		return 0, fmt.Errorf("%w: distance value must be positive", ErrInvalidDistance)
	}
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "m":
		return value, nil
	case "km":
		return value * 1000, nil
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidDistance, unit)
	}
}

// ParseDistanceToken parses a compact distance token such as "5km" or "750m"
// into meters. Whitespace between value and unit is tolerated.
func ParseDistanceToken(token string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(token))
	if s == "" {
		return 0, fmt.Errorf("%w: empty distance", ErrInvalidDistance)
	}

	unit := "m"
	switch {
	case strings.HasSuffix(s, "km"):
		unit = "km"
		s = strings.TrimSuffix(s, "km")
	case strings.HasSuffix(s, "m"):
		s = strings.TrimSuffix(s, "m")
	default:
		return 0, fmt.Errorf("%w: missing unit in %q", ErrInvalidDistance, token)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric value in %q", ErrInvalidDistance, token)
	}

	return ToMeters(value, unit)
}
