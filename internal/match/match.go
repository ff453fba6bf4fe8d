package match

import (
	"fmt"
	"math"

	"github.com/example/locksmith-search/internal/geo"
	"github.com/example/locksmith-search/internal/models"
)

// InvalidInputError reports a search origin outside WGS-84 bounds.
type InvalidInputError struct {
	Origin models.GeoPoint
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid search origin: lat=%f lon=%f", e.Origin.Lat, e.Origin.Lon)
}

// Filter narrows the candidate set before distance work happens.
type Filter struct {
	// Category keeps only providers offering this service category
	// (e.g. "home", "car"). Empty means no category filtering.
	Category string
}

// Match evaluates candidates against a search origin and returns the
// in-range ones annotated with distance and ETA.
//
// A candidate survives iff it has a usable location (live position when
// sharing, else declared base), a positive service radius, the optional
// category, and its distance from the origin is within its own declared
// radius (inclusive). Results keep the input order of candidates; callers
// that want distance ranking sort afterwards.
//
// Match is a pure function: no I/O, no mutation of candidates.
func Match(origin models.GeoPoint, candidates []models.Provider, f Filter) ([]models.MatchResult, error) {
	if !origin.Valid() {
		return nil, &InvalidInputError{Origin: origin}
	}
	results := make([]models.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		if c.ServiceRadiusKm <= 0 {
			continue
		}
		if f.Category != "" && !c.HasCategory(f.Category) {
			continue
		}
		loc, ok := c.UsableLocation()
		if !ok {
			continue
		}
		dist := geo.HaversineKm(origin, loc)
		if dist > c.ServiceRadiusKm {
			continue
		}
		results = append(results, models.MatchResult{
			Provider:   c,
			DistanceKm: dist,
			ETAMinutes: ETAMinutes(dist),
			Live:       c.ShareLocation && c.LiveLoc != nil,
		})
	}
	return results, nil
}

// ETAMinutes is the display estimate for a given distance. It is a flat
// linear heuristic, not a routing-engine figure.
func ETAMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm*2 + 10))
}
