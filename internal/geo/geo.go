package geo

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/example/locksmith-search/internal/models"
)

// LiveStore holds the current position of providers that share their
// location. The matcher never talks to it directly; the directory overlay
// reads it once per search.
type LiveStore interface {
	Upsert(ctx context.Context, u models.LocationUpdate) error
	Positions(ctx context.Context, ids []string) (map[string]models.GeoPoint, error)
}

// Index is an in-memory LiveStore for local runs and tests.
type Index struct {
	mu        sync.RWMutex
	positions map[string]models.GeoPoint
	updated   map[string]time.Time
}

func NewIndex() *Index {
	return &Index{positions: make(map[string]models.GeoPoint), updated: make(map[string]time.Time)}
}

func (g *Index) Upsert(_ context.Context, u models.LocationUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions[u.ProviderID] = u.Loc
	g.updated[u.ProviderID] = time.Now()
	return nil
}

func (g *Index) Positions(_ context.Context, ids []string) (map[string]models.GeoPoint, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]models.GeoPoint, len(ids))
	for _, id := range ids {
		if p, ok := g.positions[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// HaversineKm returns the great-circle distance between two points in
// kilometers, assuming a spherical Earth of radius 6371 km.
func HaversineKm(a, b models.GeoPoint) float64 {
	const R = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}
