package match

import (
	"errors"
	"testing"

	"github.com/example/locksmith-search/internal/geo"
	"github.com/example/locksmith-search/internal/models"
)

var london = models.GeoPoint{Lat: 51.5074, Lon: -0.1278}

func pt(lat, lon float64) *models.GeoPoint { return &models.GeoPoint{Lat: lat, Lon: lon} }

func TestMatchEndToEnd(t *testing.T) {
	candidates := []models.Provider{
		{ID: "near", Name: "Soho Locks", BaseLoc: pt(51.5114, -0.1368), ServiceRadiusKm: 15, Categories: []string{"home"}},
		{ID: "far", Name: "Manchester Keys", BaseLoc: pt(53.4808, -2.2426), ServiceRadiusKm: 10, Categories: []string{"home"}},
	}
	results, err := Match(london, candidates, Filter{})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Provider.ID != "near" {
		t.Fatalf("expected near provider, got %s", r.Provider.ID)
	}
	if r.DistanceKm < 0.5 || r.DistanceKm > 1.5 {
		t.Fatalf("distance = %f km, want ~0.8-1.5", r.DistanceKm)
	}
	if r.ETAMinutes < 11 || r.ETAMinutes > 13 {
		t.Fatalf("eta = %d, want 11-13", r.ETAMinutes)
	}
}

func TestMatchInvalidOrigin(t *testing.T) {
	_, err := Match(models.GeoPoint{Lat: 999, Lon: 0}, []models.Provider{
		{ID: "p", BaseLoc: pt(0, 0), ServiceRadiusKm: 5},
	}, Filter{})
	var iie *InvalidInputError
	if !errors.As(err, &iie) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestMatchEmptyInput(t *testing.T) {
	results, err := Match(london, nil, Filter{})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result list, got %d", len(results))
	}
}

func TestMatchRadiusBoundaryInclusive(t *testing.T) {
	origin := models.GeoPoint{Lat: 0, Lon: 0}
	target := models.GeoPoint{Lat: 0, Lon: 0.1}
	dist := geo.HaversineKm(origin, target)

	exact := models.Provider{ID: "exact", BaseLoc: &target, ServiceRadiusKm: dist}
	short := models.Provider{ID: "short", BaseLoc: &target, ServiceRadiusKm: dist - 0.001}

	results, err := Match(origin, []models.Provider{exact, short}, Filter{})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(results) != 1 || results[0].Provider.ID != "exact" {
		t.Fatalf("expected only the exact-radius provider, got %v", results)
	}
}

func TestMatchEligibility(t *testing.T) {
	cases := []struct {
		name string
		p    models.Provider
		want bool
	}{
		{"no location at all", models.Provider{ID: "a", ServiceRadiusKm: 50}, false},
		{"no base, not sharing", models.Provider{ID: "b", ShareLocation: false, LiveLoc: pt(51.51, -0.13), ServiceRadiusKm: 50}, false},
		{"zero radius", models.Provider{ID: "c", BaseLoc: pt(51.51, -0.13), ServiceRadiusKm: 0}, false},
		{"negative radius", models.Provider{ID: "d", BaseLoc: pt(51.51, -0.13), ServiceRadiusKm: -2}, false},
		{"base only", models.Provider{ID: "e", BaseLoc: pt(51.51, -0.13), ServiceRadiusKm: 50}, true},
		{"sharing with live fix", models.Provider{ID: "f", ShareLocation: true, LiveLoc: pt(51.51, -0.13), ServiceRadiusKm: 50}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := Match(london, []models.Provider{tc.p}, Filter{})
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			if got := len(results) == 1; got != tc.want {
				t.Fatalf("included=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestMatchLiveLocationPreferred(t *testing.T) {
	// base is in Manchester, but the provider's van is in London right now
	p := models.Provider{
		ID:              "mobile",
		BaseLoc:         pt(53.4808, -2.2426),
		ShareLocation:   true,
		LiveLoc:         pt(51.5080, -0.1290),
		ServiceRadiusKm: 20,
	}
	results, err := Match(london, []models.Provider{p}, Filter{})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected live-located provider to match, got %d results", len(results))
	}
	if !results[0].Live {
		t.Fatal("expected result flagged as live")
	}
	if results[0].DistanceKm > 1 {
		t.Fatalf("distance should be from live position, got %f km", results[0].DistanceKm)
	}
}

func TestMatchCategoryFilter(t *testing.T) {
	candidates := []models.Provider{
		{ID: "car", BaseLoc: pt(51.51, -0.13), ServiceRadiusKm: 50, Categories: []string{"car", "home"}},
		{ID: "home-only", BaseLoc: pt(51.51, -0.13), ServiceRadiusKm: 50, Categories: []string{"home"}},
		{ID: "none", BaseLoc: pt(51.51, -0.13), ServiceRadiusKm: 50},
	}
	results, err := Match(london, candidates, Filter{Category: "car"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	for _, r := range results {
		if !r.Provider.HasCategory("car") {
			t.Fatalf("result %s lacks filtered category", r.Provider.ID)
		}
	}
}

func TestMatchPreservesInputOrder(t *testing.T) {
	// "far" is further away but listed first; output keeps input order
	candidates := []models.Provider{
		{ID: "far", BaseLoc: pt(51.55, -0.2), ServiceRadiusKm: 50},
		{ID: "close", BaseLoc: pt(51.508, -0.128), ServiceRadiusKm: 50},
	}
	results, err := Match(london, candidates, Filter{})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(results) != 2 || results[0].Provider.ID != "far" || results[1].Provider.ID != "close" {
		t.Fatalf("expected input order [far close], got %v", results)
	}
}

func TestETAMinutes(t *testing.T) {
	cases := []struct {
		km   float64
		want int
	}{
		{0, 10},
		{5.0, 20},
		{1.2, 12},
		{2.6, 15},
		{262, 534},
	}
	for _, tc := range cases {
		if got := ETAMinutes(tc.km); got != tc.want {
			t.Fatalf("ETAMinutes(%f) = %d, want %d", tc.km, got, tc.want)
		}
	}
}

func TestMatchDoesNotMutateInput(t *testing.T) {
	candidates := []models.Provider{
		{ID: "a", BaseLoc: pt(51.51, -0.13), ServiceRadiusKm: 50, Categories: []string{"home"}},
	}
	orig := candidates[0]
	if _, err := Match(london, candidates, Filter{Category: "home"}); err != nil {
		t.Fatalf("match: %v", err)
	}
	if candidates[0].ID != orig.ID || candidates[0].ServiceRadiusKm != orig.ServiceRadiusKm {
		t.Fatal("input slice mutated")
	}
}
