package directory

import (
	"context"

	"github.com/example/locksmith-search/internal/geo"
	"github.com/example/locksmith-search/internal/models"
)

// LiveOverlay decorates a Directory with current positions from a
// LiveStore. Only providers with sharing enabled are looked up; everyone
// else keeps their declared base untouched.
type LiveOverlay struct {
	Inner Directory
	Live  geo.LiveStore
}

func WithLive(inner Directory, live geo.LiveStore) *LiveOverlay {
	return &LiveOverlay{Inner: inner, Live: live}
}

func (o *LiveOverlay) FetchCandidates(ctx context.Context) ([]models.Provider, error) {
	providers, err := o.Inner.FetchCandidates(ctx)
	if err != nil {
		return nil, err
	}
	if o.Live == nil {
		return providers, nil
	}

	var sharing []string
	for _, p := range providers {
		if p.ShareLocation {
			sharing = append(sharing, p.ID)
		}
	}
	if len(sharing) == 0 {
		return providers, nil
	}

	positions, err := o.Live.Positions(ctx, sharing)
	if err != nil {
		// a live-store outage degrades to base locations rather than
		// failing the whole search
		return providers, nil
	}
	for i := range providers {
		if !providers[i].ShareLocation {
			continue
		}
		if pos, ok := positions[providers[i].ID]; ok {
			loc := pos
			providers[i].LiveLoc = &loc
		}
	}
	return providers, nil
}
