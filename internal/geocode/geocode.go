// Package geocode resolves coordinates to human-readable place names using
// the Nominatim reverse geocoding API. Results are cached for the lifetime of
// the client, and failures degrade to a formatted coordinate string so
// itinerary generation never blocks on the geocoder.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tripweaver/internal/geo"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org"
	userAgent      = "tripweaver/1.0"
)

// Client is a reverse geocoder backed by Nominatim. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[geo.Coordinate]string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Nominatim endpoint, used by tests and
// self-hosted instances.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a reverse geocoding client.
func NewClient(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		cache:   make(map[geo.Coordinate]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// nominatimResponse mirrors the jsonv2 reverse geocoding payload, limited to
// the address fields we read.
type nominatimResponse struct {
	Address struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		State        string `json:"state"`
		Country      string `json:"country"`
	} `json:"address"`
}

// LocationName resolves the coordinate to a display name such as
// "Paris, Île-de-France, France". Repeated lookups for the same coordinate
// are served from cache, including lookups that failed and resolved to the
// coordinate fallback.
func (c *Client) LocationName(ctx context.Context, coord geo.Coordinate) string {
	c.mu.Lock()
	if name, ok := c.cache[coord]; ok {
		c.mu.Unlock()
		return name
	}
	c.mu.Unlock()

	name, err := c.reverse(ctx, coord)
	if err != nil {
		c.logger.Warn("reverse geocoding failed, using coordinate fallback",
			zap.Float64("lat", coord.Latitude),
			zap.Float64("lon", coord.Longitude),
			zap.Error(err))
		name = FallbackName(coord)
	}

	// Fallback names are cached too so a coordinate that keeps failing does
	// not hammer the rate-limited Nominatim API on every batch.
	c.mu.Lock()
	c.cache[coord] = name
	c.mu.Unlock()

	return name
}

func (c *Client) reverse(ctx context.Context, coord geo.Coordinate) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", fmt.Sprintf("%f", coord.Latitude))
	q.Set("lon", fmt.Sprintf("%f", coord.Longitude))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	name := composeName(payload)
	if name == "" {
		return "", fmt.Errorf("no usable address fields in response")
	}
	return name, nil
}

// composeName prefers the most specific settlement name, then adds the state
// when it differs from the settlement, then the country.
func composeName(payload nominatimResponse) string {
	addr := payload.Address

	city := addr.City
	if city == "" {
		city = addr.Town
	}
	if city == "" {
		city = addr.Village
	}
	if city == "" {
		city = addr.Municipality
	}

	var parts []string
	if city != "" {
		parts = append(parts, city)
	}
	if addr.State != "" && addr.State != city {
		parts = append(parts, addr.State)
	}
	if addr.Country != "" {
		parts = append(parts, addr.Country)
	}

	return strings.Join(parts, ", ")
}

// FallbackName formats a coordinate as a location name for when reverse
// geocoding is unavailable.
func FallbackName(coord geo.Coordinate) string {
	return fmt.Sprintf("%.4f, %.4f", coord.Latitude, coord.Longitude)
}

// CacheSize reports the number of cached lookups.
func (c *Client) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
