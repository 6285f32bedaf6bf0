package geocode

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ProviderDirectory/internal/config"
	"ProviderDirectory/internal/domain"
	"ProviderDirectory/internal/ports"
)

// Geocoder resolves free-text addresses against a Nominatim-style
// endpoint through the persistent cache. Every failure mode stores an
// error marker and returns nil; only the budget path leaves the cache
// untouched, since a budget-starved address was never attempted.
type Geocoder struct {
	httpClient   *http.Client
	endpoint     string
	userAgent    string
	politeness   time.Duration
	homeAddress  string
	homeFallback domain.Coordinate
	cache        *Cache
	logger       *slog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

var _ ports.Geocoder = (*Geocoder)(nil)

// New wires a geocoder over a loaded cache.
func New(cfg config.GeocodeConfig, cache *Cache, client *http.Client, logger *slog.Logger) *Geocoder {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout.Std()}
	}
	return &Geocoder{
		httpClient:   client,
		endpoint:     cfg.Endpoint,
		userAgent:    cfg.UserAgent,
		politeness:   cfg.Politeness.Std(),
		homeAddress:  cfg.HomeAddress,
		homeFallback: cfg.HomeFallback,
		cache:        cache,
		logger:       logger,
		sleep:        time.Sleep,
	}
}

// geocodeResult is the wire shape of one Nominatim match; coordinates
// arrive as numeric-parseable strings.
type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves one address. Cache hits (success or error marker)
// never touch the network; an exhausted budget returns nil without a
// network call; otherwise exactly one lookup is issued.
func (g *Geocoder) Geocode(ctx context.Context, address string, budget *domain.GeocodeBudget) *domain.Coordinate {
	if address == "" {
		return nil
	}

	if entry, ok := g.cache.Lookup(address); ok {
		return entry.Coordinate()
	}

	if budget.Exhausted() {
		g.debug("geocode budget exhausted", "address", address)
		return nil
	}

	coord := g.lookup(ctx, address)
	if coord == nil {
		g.cache.PutError(address)
		return nil
	}

	g.cache.PutCoordinate(address, *coord)
	budget.Spend()
	g.sleep(g.politeness)
	return coord
}

// HomeCoordinate resolves the fixed reference point through the same
// cached path, falling back to the configured constant. Geocoding is
// never allowed to make the reference point unavailable.
func (g *Geocoder) HomeCoordinate(ctx context.Context, budget *domain.GeocodeBudget) domain.Coordinate {
	if coord := g.Geocode(ctx, g.homeAddress, budget); coord != nil {
		return *coord
	}
	g.debug("home address unresolved, using fallback", "address", g.homeAddress)
	return g.homeFallback
}

// lookup issues the single external request. Any failure returns nil.
func (g *Geocoder) lookup(ctx context.Context, address string) *domain.Coordinate {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		g.debug("geocode request build failed", "error", err)
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.debug("geocode request failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.debug("geocode non-200", "status", resp.Status)
		return nil
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		g.debug("geocode decode failed", "error", err)
		return nil
	}
	if len(results) == 0 {
		return nil
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		g.debug("geocode malformed coordinates", "lat", results[0].Lat, "lon", results[0].Lon)
		return nil
	}

	return &domain.Coordinate{Lat: lat, Lon: lon}
}

func (g *Geocoder) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
