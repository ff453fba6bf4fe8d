package search

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/locksmith-search/internal/directory"
	"github.com/example/locksmith-search/internal/geocode"
	"github.com/example/locksmith-search/internal/match"
	"github.com/example/locksmith-search/internal/models"
	"github.com/example/locksmith-search/internal/observability"
	"github.com/example/locksmith-search/internal/storage"
)

// ErrSuperseded means the same session started a newer search while this
// one was resolving its postcode or fetching candidates. The stale result
// is discarded and never recorded.
var ErrSuperseded = errors.New("search superseded by a newer request")

type Request struct {
	Postcode string
	Category string

	// SessionID identifies one search session (one browser tab). When a
	// session re-submits while an earlier search is still in flight, the
	// older search is superseded. Sessions never affect each other; an
	// empty SessionID opts out entirely.
	SessionID string
}

type Response struct {
	Origin  models.GeoPoint      `json:"origin"`
	Results []models.MatchResult `json:"results"`
}

// Service runs the search pipeline: resolve postcode, fetch candidates,
// match. The two network steps suspend; matching is synchronous. A
// per-session generation counter supersedes overlapping searches from the
// same session instead of relying on the caller to discard stale responses.
type Service struct {
	Resolver  geocode.Resolver
	Directory directory.Directory
	Store     storage.SearchStore
	Logger    *slog.Logger

	// RankByDistance applies a stable ascending-distance sort on top of
	// the matcher's input-order output. Off by default: the classic
	// behavior returns results in directory order.
	RankByDistance bool

	// Timeout bounds one whole pipeline run. Zero means the caller's
	// context is the only bound.
	Timeout time.Duration

	mu   sync.Mutex
	gens map[string]uint64
}

func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	myGen := s.begin(req.SessionID)
	start := time.Now()

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	origin, err := s.Resolver.Resolve(ctx, req.Postcode)
	if err != nil {
		observability.GeocodeFailures.WithLabelValues(geocodeFailureClass(err)).Inc()
		return Response{}, err
	}
	if s.superseded(req.SessionID, myGen) {
		return Response{}, ErrSuperseded
	}

	candidates, err := s.Directory.FetchCandidates(ctx)
	if err != nil {
		return Response{}, err
	}
	if s.superseded(req.SessionID, myGen) {
		return Response{}, ErrSuperseded
	}

	results, err := match.Match(origin, candidates, match.Filter{Category: req.Category})
	if err != nil {
		return Response{}, err
	}
	if s.RankByDistance {
		sort.SliceStable(results, func(i, j int) bool { return results[i].DistanceKm < results[j].DistanceKm })
	}

	elapsed := time.Since(start)
	observability.SearchesTotal.Inc()
	observability.SearchLatency.Observe(elapsed.Seconds())
	observability.SearchResults.Observe(float64(len(results)))

	s.record(ctx, req, origin, len(results), elapsed)

	return Response{Origin: origin, Results: results}, nil
}

// begin claims the next generation for a session. Sessionless searches get
// generation zero and never participate in supersession.
func (s *Service) begin(session string) uint64 {
	if session == "" {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens == nil {
		s.gens = make(map[string]uint64)
	}
	s.gens[session]++
	return s.gens[session]
}

func (s *Service) superseded(session string, gen uint64) bool {
	if session == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[session] != gen
}

// record writes the audit row best-effort; a storage outage must not turn
// a successful search into an error.
func (s *Service) record(ctx context.Context, req Request, origin models.GeoPoint, count int, elapsed time.Duration) {
	if s.Store == nil {
		return
	}
	rec := &models.SearchRecord{
		ID:          newID(),
		Postcode:    req.Postcode,
		Origin:      origin,
		Category:    req.Category,
		ResultCount: count,
		Duration:    elapsed,
		CreatedAt:   time.Now(),
	}
	if err := s.Store.SaveSearch(ctx, rec); err != nil && s.Logger != nil {
		s.Logger.Warn("search audit write failed", "error", err, "postcode", req.Postcode)
	}
}

func geocodeFailureClass(err error) string {
	var ipe *geocode.InvalidPostcodeError
	if errors.As(err, &ipe) {
		return "invalid_postcode"
	}
	return "unavailable"
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
