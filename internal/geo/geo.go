package geo

import (
	"math"
	"sort"

	"github.com/gravadigital/bienestar-api/internal/domain/venue"
)

// EarthRadiusKm is the mean Earth radius used by the Haversine formula
const EarthRadiusKm = 6371.0

// Nearby is a venue annotated with its distance from the query point
type Nearby struct {
	Venue      *venue.Venue `json:"venue"`
	DistanceKm float64      `json:"distance_km"`

	exact float64
}

// Distance returns the great-circle distance in kilometers between two points
// given in degrees
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := radians(lat1)
	lat2Rad := radians(lat2)
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FindNearby keeps the venues within radiusKm of the center and sorts them by
// ascending distance. The radius comparison uses the exact distance; the
// reported DistanceKm is rounded to two decimals. Ties keep input order.
// An out-of-range center yields an empty result.
func FindNearby(centerLat, centerLon, radiusKm float64, venues []*venue.Venue) []Nearby {
	result := make([]Nearby, 0)
	if !venue.ValidLatitude(centerLat) || !venue.ValidLongitude(centerLon) {
		return result
	}

	for _, v := range venues {
		d := Distance(centerLat, centerLon, v.Latitude, v.Longitude)
		if d <= radiusKm {
			result = append(result, Nearby{Venue: v, DistanceKm: Round2(d), exact: d})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].exact < result[j].exact
	})
	return result
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
