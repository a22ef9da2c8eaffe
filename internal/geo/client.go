package geo

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Default provider endpoints. The route endpoints are tried in order; the
// plaintext mirror of the primary host is the last resort.
const (
	DefaultGeocodeURL = "https://nominatim.openstreetmap.org/search"
	DefaultReverseURL = "https://nominatim.openstreetmap.org/reverse"
)

var DefaultRouteEndpoints = []string{
	"https://router.project-osrm.org/route/v1/driving",
	"https://routing.openstreetmap.de/routed-car/route/v1/driving",
	"http://router.project-osrm.org/route/v1/driving",
}

const (
	// DefaultThrottleInterval is the minimum gap between requests to the
	// primary geocoding provider.
	DefaultThrottleInterval = 2 * time.Second

	requestTimeout   = 10 * time.Second
	maxRetries       = 3
	maxBackoff       = 15 * time.Second
	fallbackSpeedKmh = 40 // assumed average urban speed for estimates
)

// Config holds provider endpoints and resilience knobs for the Client.
type Config struct {
	GeocodeURL     string
	ReverseURL     string
	RouteEndpoints []string
	UserAgent      string

	// AllowInsecureTLSRetry enables a single retry over a connection that
	// skips certificate-chain validation when the first attempt failed with
	// a trust error. Off by default: it defeats transport security and
	// exists only for misconfigured intermediary proxies.
	AllowInsecureTLSRetry bool
}

// Client is a throttled, cached, retrying client for forward/reverse
// geocoding, autocomplete, and route queries against external providers.
type Client struct {
	cfg      Config
	queue    *RequestQueue
	http     *http.Client
	insecure *http.Client

	coords      *ttlCache[Coordinate]
	suggestions *ttlCache[[]string]

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client. The queue serializes all requests to the
// primary geocoding provider; route providers are not throttled.
func NewClient(cfg Config, queue *RequestQueue) *Client {
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = DefaultGeocodeURL
	}
	if cfg.ReverseURL == "" {
		cfg.ReverseURL = DefaultReverseURL
	}
	if len(cfg.RouteEndpoints) == 0 {
		cfg.RouteEndpoints = DefaultRouteEndpoints
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ridedispatch/1.0"
	}

	return &Client{
		cfg:   cfg,
		queue: queue,
		http:  &http.Client{Timeout: requestTimeout},
		insecure: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		coords:      newTTLCache[Coordinate](coordinateCacheTTL),
		suggestions: newTTLCache[[]string](suggestionCacheTTL),
		sleep:       sleepCtx,
	}
}

// nominatimResult is the provider's search/reverse response shape. Payloads
// are validated at this boundary and never trusted beyond the parse step.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves an address to coordinates. Transient provider failures
// (429/5xx or no response) are retried up to 3 times with exponential
// backoff; an empty result set fails immediately with ErrNoResults.
func (c *Client) Geocode(ctx context.Context, address string) (Coordinate, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinate{}, ErrInvalidInput
	}

	// Cache key folds case the same way the suggestions cache does.
	cacheKey := strings.ToLower(address)
	if cached, ok := c.coords.get(cacheKey); ok {
		return cached, nil
	}

	params := url.Values{
		"q":              {address},
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"0"},
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		coord, retryable, err := c.geocodeOnce(ctx, params)
		if err == nil {
			c.coords.set(cacheKey, coord)
			return coord, nil
		}
		if errors.Is(err, ErrNoResults) {
			return Coordinate{}, err
		}
		if !retryable || attempt == maxRetries {
			break
		}
		if serr := c.sleep(ctx, backoffDelay(attempt)); serr != nil {
			return Coordinate{}, ErrGeocodeUnavailable
		}
	}

	return Coordinate{}, ErrGeocodeUnavailable
}

// geocodeOnce performs a single throttled provider round trip. The second
// return value reports whether the failure is transient.
func (c *Client) geocodeOnce(ctx context.Context, params url.Values) (Coordinate, bool, error) {
	resp, err := c.throttledGet(ctx, c.cfg.GeocodeURL, params)
	if err != nil {
		// No response at all is treated as transient.
		return Coordinate{}, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinate{}, isTransientStatus(resp.StatusCode), fmt.Errorf("geocode provider status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinate{}, true, err
	}

	if len(results) == 0 {
		return Coordinate{}, false, ErrNoResults
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return Coordinate{}, false, ErrNoResults
	}

	coord := Coordinate{Lat: lat, Lng: lng}
	if !coord.Finite() {
		return Coordinate{}, false, ErrNoResults
	}

	return coord, false, nil
}

// ReverseGeocode resolves coordinates to a display address. When the
// provider rate-limits (429) it degrades to a formatted "lat, lng" string
// instead of failing.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	if !isFinite(lat) || !isFinite(lng) {
		return "", ErrInvalidInput
	}

	params := url.Values{
		"format":         {"jsonv2"},
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lng, 'f', -1, 64)},
		"addressdetails": {"0"},
	}

	resp, err := c.throttledGet(ctx, c.cfg.ReverseURL, params)
	if err != nil {
		return "", ErrReverseGeocodeUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return formatCoordinate(lat, lng), nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", ErrReverseGeocodeUnavailable
	}

	var result nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", ErrReverseGeocodeUnavailable
	}

	if result.DisplayName == "" {
		return formatCoordinate(lat, lng), nil
	}

	return result.DisplayName, nil
}

// Autocomplete returns up to five address suggestions for a partial query.
// Transient provider failures yield an empty list rather than an error so
// the typing UI stays responsive.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]string, error) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return nil, ErrInvalidInput
	}

	if cached, ok := c.suggestions.get(normalized); ok {
		return cached, nil
	}

	params := url.Values{
		"q":              {normalized},
		"format":         {"json"},
		"limit":          {"5"},
		"addressdetails": {"0"},
	}

	resp, err := c.throttledGet(ctx, c.cfg.GeocodeURL, params)
	if err != nil {
		// TLS trust failures and dead connections are transient.
		return []string{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if isTransientStatus(resp.StatusCode) {
			return []string{}, nil
		}
		return nil, ErrSuggestUnavailable
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, ErrSuggestUnavailable
	}

	suggestions := make([]string, 0, len(results))
	for _, r := range results {
		if r.DisplayName != "" {
			suggestions = append(suggestions, r.DisplayName)
		}
	}

	c.suggestions.set(normalized, suggestions)
	return suggestions, nil
}

// DistanceAndDuration geocodes both ends and asks the route providers for a
// driving estimate. When every provider fails it falls back to a
// great-circle estimate at an assumed urban speed; it only fails when
// geocoding itself fails.
func (c *Client) DistanceAndDuration(ctx context.Context, origin, destination string) (DistanceDuration, error) {
	originCoord, err := c.Geocode(ctx, origin)
	if err != nil {
		return DistanceDuration{}, err
	}
	destCoord, err := c.Geocode(ctx, destination)
	if err != nil {
		return DistanceDuration{}, err
	}

	route, err := c.routeFromProviders(ctx, originCoord, destCoord, url.Values{"overview": {"false"}})
	if err == nil {
		return DistanceDuration{
			DistanceMeters:  route.Distance,
			DurationSeconds: route.Duration,
		}, nil
	}

	distanceKm := HaversineKm(originCoord, destCoord)
	durationMinutes := math.Round(distanceKm / fallbackSpeedKmh * 60)

	log.Printf("[geo] route providers down, using straight-line estimate: %.1f km", distanceKm)

	return DistanceDuration{
		DistanceMeters:  distanceKm * 1000,
		DurationSeconds: durationMinutes * 60,
		Estimated:       true,
	}, nil
}

// RoutePath returns the full route geometry between two addresses. There is
// no straight-line fallback here: a path needs real geometry, so fewer than
// two points from every provider fails with ErrRouteUnavailable.
func (c *Client) RoutePath(ctx context.Context, origin, destination string) ([]Coordinate, error) {
	originCoord, err := c.Geocode(ctx, origin)
	if err != nil {
		return nil, err
	}
	destCoord, err := c.Geocode(ctx, destination)
	if err != nil {
		return nil, err
	}

	route, err := c.routeFromProviders(ctx, originCoord, destCoord, url.Values{
		"overview":   {"full"},
		"geometries": {"geojson"},
	})
	if err != nil {
		return nil, ErrRouteUnavailable
	}

	var path []Coordinate
	if route.Geometry != nil {
		for _, point := range route.Geometry.Coordinates {
			if len(point) < 2 {
				continue
			}
			coord := Coordinate{Lat: point[1], Lng: point[0]}
			if !coord.Finite() {
				continue
			}
			path = append(path, coord)
		}
	}

	if len(path) < 2 {
		return nil, ErrRouteUnavailable
	}

	return path, nil
}

// osrmResponse is the route provider response shape.
type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64       `json:"distance"`
	Duration float64       `json:"duration"`
	Geometry *osrmGeometry `json:"geometry"`
}

type osrmGeometry struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// routeFromProviders tries each route endpoint in priority order and
// short-circuits on the first well-formed route. These calls bypass the
// geocoding throttle.
func (c *Client) routeFromProviders(ctx context.Context, origin, dest Coordinate, options url.Values) (*osrmRoute, error) {
	coords := fmt.Sprintf("%f,%f;%f,%f", origin.Lng, origin.Lat, dest.Lng, dest.Lat)
	query := options.Encode()

	var lastErr error
	for _, endpoint := range c.cfg.RouteEndpoints {
		target := endpoint + "/" + coords
		if query != "" {
			target += "?" + query
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			lastErr = err
			continue
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		var parsed osrmResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if parsed.Code == "Ok" && len(parsed.Routes) > 0 {
			return &parsed.Routes[0], nil
		}
		lastErr = fmt.Errorf("route provider returned code %q", parsed.Code)
	}

	if lastErr == nil {
		lastErr = errors.New("no route providers configured")
	}
	return nil, lastErr
}

// throttledGet issues a GET through the serialized request queue. On a TLS
// trust error it retries once without certificate validation, if that
// escape hatch is enabled.
func (c *Client) throttledGet(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	target := rawURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept-Language", "en")

	return c.queue.Do(ctx, func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err == nil || !isTLSTrustError(err) || !c.cfg.AllowInsecureTLSRetry {
			return resp, err
		}

		log.Printf("[geo] SECURITY: retrying %s without certificate validation after trust error: %v", rawURL, err)
		return c.insecure.Do(req.Clone(ctx))
	})
}

// isTransientStatus reports whether an HTTP status is worth retrying.
func isTransientStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isTLSTrustError matches the enumerated certificate-chain error classes
// eligible for the insecure retry.
func isTLSTrustError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return true
	}
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "self-signed certificate") ||
		strings.Contains(msg, "certificate chain")
}

// backoffDelay returns min(1000*2^(attempt+1), 15000) milliseconds.
func backoffDelay(attempt int) time.Duration {
	delay := time.Duration(1000*math.Pow(2, float64(attempt+1))) * time.Millisecond
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

func formatCoordinate(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
