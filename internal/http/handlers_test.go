package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/example/locksmith-search/internal/directory"
	"github.com/example/locksmith-search/internal/geo"
	"github.com/example/locksmith-search/internal/geocode"
	"github.com/example/locksmith-search/internal/models"
	"github.com/example/locksmith-search/internal/search"
	"github.com/example/locksmith-search/internal/storage"
)

var london = models.GeoPoint{Lat: 51.5074, Lon: -0.1278}

type stubResolver struct {
	pt  models.GeoPoint
	err error
}

func (s *stubResolver) Resolve(ctx context.Context, postcode string) (models.GeoPoint, error) {
	return s.pt, s.err
}

func newTestServer(resolver geocode.Resolver) *Server {
	soho := models.GeoPoint{Lat: 51.5114, Lon: -0.1368}
	dir := directory.NewMemory(
		models.Provider{ID: "soho", Name: "Soho Keys", BaseLoc: &soho, ServiceRadiusKm: 15, Categories: []string{"home", "car"}},
	)
	return NewServer(Options{
		Search: &search.Service{
			Resolver:  resolver,
			Directory: dir,
			Store:     storage.NewMemoryStore(),
		},
		Live:            geo.NewIndex(),
		DepositAmount:   2500,
		DepositCurrency: "gbp",
	})
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(&stubResolver{pt: london})
	req := httptest.NewRequest("GET", "/api/v1/search?postcode=SW1A+1AA", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp search.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Origin != london {
		t.Fatalf("origin = %v", resp.Origin)
	}
	if len(resp.Results) != 1 || resp.Results[0].Provider.ID != "soho" {
		t.Fatalf("unexpected results: %v", resp.Results)
	}
}

func TestSearchEndpointMissingPostcode(t *testing.T) {
	srv := newTestServer(&stubResolver{pt: london})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/search", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSearchEndpointInvalidPostcode(t *testing.T) {
	srv := newTestServer(&stubResolver{err: &geocode.InvalidPostcodeError{Postcode: "ZZ"}})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/search?postcode=ZZ", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "check your postcode") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestSearchEndpointGeocoderDown(t *testing.T) {
	srv := newTestServer(&stubResolver{err: &geocode.GeocodingUnavailableError{Status: 502}})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/search?postcode=SW1A+1AA", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestSearchEndpointNoResults(t *testing.T) {
	// origin far from every provider
	srv := newTestServer(&stubResolver{pt: models.GeoPoint{Lat: 57.1497, Lon: -2.0943}})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/search?postcode=AB10+1AA", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("no results must be 200, got %d", w.Code)
	}
	var resp search.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("expected empty results, got %v", resp.Results)
	}
}

func TestProviderLocationEndpoint(t *testing.T) {
	srv := newTestServer(&stubResolver{pt: london})
	body := strings.NewReader(`{"provider_id":"p1","loc":{"lat":51.5,"lon":-0.1}}`)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/internal/provider/locations", body))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	got, err := srv.liveStore.Positions(context.Background(), []string{"p1"})
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if got["p1"].Lat != 51.5 {
		t.Fatalf("live store not updated: %v", got)
	}
}

func TestProviderLocationEndpointRejectsBadPoint(t *testing.T) {
	srv := newTestServer(&stubResolver{pt: london})
	body := strings.NewReader(`{"provider_id":"p1","loc":{"lat":999,"lon":-0.1}}`)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/internal/provider/locations", body))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

type fakeDeposits struct {
	held     []string
	captured []string
	released []string
}

func (f *fakeDeposits) Hold(_ context.Context, amount int64, currency, customerID string) (string, error) {
	f.held = append(f.held, customerID)
	return "pi_test_123", nil
}
func (f *fakeDeposits) Capture(_ context.Context, id string) error {
	f.captured = append(f.captured, id)
	return nil
}
func (f *fakeDeposits) Release(_ context.Context, id string) error {
	f.released = append(f.released, id)
	return nil
}

func TestDepositFlow(t *testing.T) {
	srv := newTestServer(&stubResolver{pt: london})
	dep := &fakeDeposits{}
	srv.deposits = dep

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/callouts/soho/deposit",
		strings.NewReader(`{"customer_id":"cus_1"}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("hold status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp depositResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PaymentIntentID != "pi_test_123" || resp.Amount != 2500 || resp.Currency != "gbp" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/callouts/deposits/pi_test_123/capture", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("capture status = %d", w.Code)
	}
	if len(dep.captured) != 1 || dep.captured[0] != "pi_test_123" {
		t.Fatalf("capture not forwarded: %v", dep.captured)
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/callouts/deposits/pi_test_123/release", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("release status = %d", w.Code)
	}
}

func TestDepositNotConfigured(t *testing.T) {
	srv := newTestServer(&stubResolver{pt: london})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/callouts/soho/deposit",
		strings.NewReader(`{}`)))
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", w.Code)
	}
}

// gatedResolver blocks its first call until released, so tests can order
// two overlapping searches deterministically.
type gatedResolver struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedResolver) Resolve(ctx context.Context, postcode string) (models.GeoPoint, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.entered)
		<-g.release
	}
	return london, nil
}

func TestSearchSessionSupersession(t *testing.T) {
	res := &gatedResolver{entered: make(chan struct{}), release: make(chan struct{})}
	srv := newTestServer(res)

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest("GET", "/api/v1/search?postcode=SW1A+1AA", nil)
		req.Header.Set("X-Search-Session", "tab-1")
		srv.ServeHTTP(first, req)
	}()
	<-res.entered

	// the same tab re-submits and completes while the first is blocked
	second := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/search?postcode=N1+9GU", nil)
	req.Header.Set("X-Search-Session", "tab-1")
	srv.ServeHTTP(second, req)
	if second.Code != http.StatusOK {
		t.Fatalf("newer search status = %d", second.Code)
	}

	close(res.release)
	<-done
	if first.Code != http.StatusConflict {
		t.Fatalf("stale search status = %d, want 409", first.Code)
	}
}

func TestSearchUnrelatedSessionsBothSucceed(t *testing.T) {
	res := &gatedResolver{entered: make(chan struct{}), release: make(chan struct{})}
	srv := newTestServer(res)

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest("GET", "/api/v1/search?postcode=SW1A+1AA", nil)
		req.Header.Set("X-Search-Session", "tab-1")
		srv.ServeHTTP(first, req)
	}()
	<-res.entered

	// a different customer searches while the first request is in flight
	second := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/search?postcode=N1+9GU", nil)
	req.Header.Set("X-Search-Session", "tab-2")
	srv.ServeHTTP(second, req)
	if second.Code != http.StatusOK {
		t.Fatalf("other customer's search status = %d", second.Code)
	}

	close(res.release)
	<-done
	if first.Code != http.StatusOK {
		t.Fatalf("slower customer's search status = %d, want 200; body = %s", first.Code, first.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&stubResolver{pt: london})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
