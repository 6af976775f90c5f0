package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coord is a latitude/longitude pair in degrees.
type Coord struct {
	Lat float64
	Lng float64
}

// ParseCoord parses "lat,lng" or "lat,lng|free-text-label". The label
// segment, when present, is ignored.
func ParseCoord(s string) (Coord, error) {
	raw := strings.TrimSpace(strings.SplitN(s, "|", 2)[0])
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Coord{}, fmt.Errorf("geo: malformed coordinate %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coord{}, fmt.Errorf("geo: bad latitude in %q: %w", s, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coord{}, fmt.Errorf("geo: bad longitude in %q: %w", s, err)
	}
	return Coord{Lat: lat, Lng: lng}, nil
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b Coord) float64 {
	const R = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}

// FallbackETA is returned when either input fails to parse. ETA is advisory,
// so unparseable coordinates degrade instead of failing the caller.
const FallbackETA = "30 min"

// EstimateETA estimates travel time between two coordinate strings at the
// given average speed and formats it as "<N> min", truncated to whole
// minutes. Pure and safe for concurrent use.
func EstimateETA(origin, destination string, speedKmh float64) string {
	if speedKmh <= 0 {
		speedKmh = 40
	}
	from, err := ParseCoord(origin)
	if err != nil {
		return FallbackETA
	}
	to, err := ParseCoord(destination)
	if err != nil {
		return FallbackETA
	}
	minutes := int(HaversineKm(from, to) / speedKmh * 60)
	return fmt.Sprintf("%d min", minutes)
}
