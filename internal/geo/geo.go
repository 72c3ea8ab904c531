package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cscoin/carshare/internal/models"
)

// EarthRadiusKM is the mean earth radius used by the haversine formula.
const EarthRadiusKM = 6371.0

// ParseCoordinate parses the "lat;lon" form used on stored entities.
func ParseCoordinate(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ";")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed coordinate %q", s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed latitude in %q", s)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed longitude in %q", s)
	}
	return lat, lon, nil
}

// Distance returns the great-circle distance in kilometers between two
// "lat;lon" strings.
func Distance(a, b string) (float64, error) {
	lat1, lon1, err := ParseCoordinate(a)
	if err != nil {
		return 0, err
	}
	lat2, lon2, err := ParseCoordinate(b)
	if err != nil {
		return 0, err
	}
	return DistanceKm(lat1, lon1, lat2, lon2), nil
}

// DistanceKm computes the haversine distance in kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

// WithinLimit reports whether two "lat;lon" points are at most limitKm
// apart.
func WithinLimit(a, b string, limitKm float64) (bool, error) {
	d, err := Distance(a, b)
	if err != nil {
		return false, err
	}
	return d <= limitKm, nil
}

// ValidateCoordinate checks a wire coordinate for sane latitude and
// longitude ranges.
func ValidateCoordinate(c models.Coordinate) error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// FormatCoordinate renders a wire coordinate in the stored "lat;lon" form.
func FormatCoordinate(c models.Coordinate) string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + ";" + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}
