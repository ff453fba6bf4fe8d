package models

import "time"

// GeoPoint is a WGS-84 latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies inside the WGS-84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Provider is a snapshot of one locksmith eligible for matching.
// BaseLoc and LiveLoc are pointers: a provider without a declared base
// cannot be matched unless it is currently sharing a live position.
type Provider struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	BaseLoc         *GeoPoint `json:"base_loc,omitempty"`
	ShareLocation   bool      `json:"share_location"`
	LiveLoc         *GeoPoint `json:"live_loc,omitempty"`
	ServiceRadiusKm float64   `json:"service_radius_km"`
	Categories      []string  `json:"categories"`
	Phone           string    `json:"phone,omitempty"`
	Website         string    `json:"website,omitempty"`
}

// UsableLocation returns the live position when sharing is on and a live
// fix exists, otherwise the declared base. ok is false when neither is set.
func (p Provider) UsableLocation() (GeoPoint, bool) {
	if p.ShareLocation && p.LiveLoc != nil {
		return *p.LiveLoc, true
	}
	if p.BaseLoc != nil {
		return *p.BaseLoc, true
	}
	return GeoPoint{}, false
}

// HasCategory reports whether the provider offers the given service category.
func (p Provider) HasCategory(cat string) bool {
	for _, c := range p.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// MatchResult annotates one in-range provider for a single search.
// It is derived per search and never persisted.
type MatchResult struct {
	Provider   Provider `json:"provider"`
	DistanceKm float64  `json:"distance_km"`
	ETAMinutes int      `json:"eta_minutes"`
	Live       bool     `json:"live"`
}

// LocationUpdate is one live position report from a sharing provider.
type LocationUpdate struct {
	ProviderID string    `json:"provider_id"`
	Loc        GeoPoint  `json:"loc"`
	ReportedAt time.Time `json:"reported_at"`
}

// SearchRecord is the audit row written after each completed search.
type SearchRecord struct {
	ID          string
	Postcode    string
	Origin      GeoPoint
	Category    string
	ResultCount int
	Duration    time.Duration
	CreatedAt   time.Time
}
