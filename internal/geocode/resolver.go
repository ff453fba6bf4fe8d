package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/locksmith-search/internal/models"
)

// Resolver turns a free-text postcode into a search origin.
type Resolver interface {
	Resolve(ctx context.Context, postcode string) (models.GeoPoint, error)
}

// InvalidPostcodeError means the geocoding service returned zero matches.
// Retrying without new input will not help.
type InvalidPostcodeError struct {
	Postcode string
}

func (e *InvalidPostcodeError) Error() string {
	return fmt.Sprintf("postcode %q did not resolve to a location", e.Postcode)
}

// GeocodingUnavailableError means the service was unreachable or returned a
// non-success status; the search can be retried later.
type GeocodingUnavailableError struct {
	Status int
	Err    error
}

func (e *GeocodingUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocoding unavailable: %v", e.Err)
	}
	return fmt.Sprintf("geocoding unavailable: status %d", e.Status)
}

func (e *GeocodingUnavailableError) Unwrap() error { return e.Err }

// Client resolves postcodes against a Mapbox-style forward-geocoding
// endpoint. Token and endpoint come from config, never from the ambient
// environment, so the client stays testable against httptest servers.
type Client struct {
	Endpoint string
	Token    string
	HTTP     *http.Client

	// Attempts and Backoff bound the retry loop for transport and 5xx
	// failures. Zero values fall back to 3 attempts / 200ms.
	Attempts int
	Backoff  time.Duration
}

func NewClient(endpoint, token string) *Client {
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Token:    token,
		HTTP:     &http.Client{Timeout: 5 * time.Second},
		Attempts: 3,
		Backoff:  200 * time.Millisecond,
	}
}

type geocodeResponse struct {
	Features []struct {
		Center []float64 `json:"center"` // [lon, lat]
	} `json:"features"`
}

// Resolve queries the geocoding endpoint for the postcode and returns the
// center of the first feature. Transport errors and 5xx responses are
// retried with exponential backoff; other non-2xx statuses fail fast.
func (c *Client) Resolve(ctx context.Context, postcode string) (models.GeoPoint, error) {
	q := strings.TrimSpace(postcode)
	if q == "" {
		return models.GeoPoint{}, &InvalidPostcodeError{Postcode: postcode}
	}

	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?types=postcode&limit=1&access_token=%s",
		c.Endpoint, url.PathEscape(q), url.QueryEscape(c.Token))

	attempts := c.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := c.Backoff
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return models.GeoPoint{}, &GeocodingUnavailableError{Err: ctx.Err()}
			case <-time.After(delay):
			}
			delay *= 2
		}

		pt, retryable, err := c.resolveOnce(ctx, u, q)
		if err == nil {
			return pt, nil
		}
		if !retryable {
			return models.GeoPoint{}, err
		}
		lastErr = err
	}
	return models.GeoPoint{}, lastErr
}

func (c *Client) resolveOnce(ctx context.Context, u, postcode string) (models.GeoPoint, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.GeoPoint{}, false, &GeocodingUnavailableError{Err: err}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return models.GeoPoint{}, true, &GeocodingUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return models.GeoPoint{}, true, &GeocodingUnavailableError{Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return models.GeoPoint{}, false, &GeocodingUnavailableError{Status: resp.StatusCode}
	}

	var out geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.GeoPoint{}, false, &GeocodingUnavailableError{Err: err}
	}
	if len(out.Features) == 0 || len(out.Features[0].Center) < 2 {
		return models.GeoPoint{}, false, &InvalidPostcodeError{Postcode: postcode}
	}
	center := out.Features[0].Center
	pt := models.GeoPoint{Lat: center[1], Lon: center[0]}
	if !pt.Valid() {
		return models.GeoPoint{}, false, &GeocodingUnavailableError{
			Err: fmt.Errorf("geocoder returned out-of-range point lat=%f lon=%f", pt.Lat, pt.Lon),
		}
	}
	return pt, true, nil
}
