// Package geo resolves coordinates into human-readable places.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/m3rciful/geopal/core/logger"
	"github.com/m3rciful/geopal/internal/failure"
)

const component = "geo"

// Unknown stands for a place part the geocoder did not return.
const Unknown = "N/A"

// ErrMissingAPIKey reports that no geocoding credential is configured.
var ErrMissingAPIKey = errors.New("geo: geocoding api key is not configured")

// Place is a resolved location.
type Place struct {
	City    string
	Country string
}

func (p Place) String() string {
	return orUnknown(p.City) + ", " + orUnknown(p.Country)
}

// Resolver turns coordinates into a Place.
type Resolver interface {
	Resolve(ctx context.Context, lat, lon float64) (Place, error)
}

// GoogleResolver uses the Google reverse geocoding API.
type GoogleResolver struct {
	client  *maps.Client
	timeout time.Duration
}

// GoogleOptions configure NewGoogleResolver.
type GoogleOptions struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewGoogleResolver builds a resolver. It fails with ErrMissingAPIKey when
// no key is set.
func NewGoogleResolver(opts GoogleOptions) (*GoogleResolver, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	clientOpts := []maps.ClientOption{maps.WithAPIKey(key)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, maps.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, maps.WithHTTPClient(opts.HTTPClient))
	}
	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("geo: maps client: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GoogleResolver{client: client, timeout: timeout}, nil
}

// Resolve picks the first locality and country among the returned results.
func (g *GoogleResolver) Resolve(ctx context.Context, lat, lon float64) (Place, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lon},
	})
	took := logger.RoundMS(time.Since(start))
	if err != nil {
		logger.Warn(ctx, component, "geo.reverse",
			slog.String("status", "fail"),
			slog.Duration("duration", took),
			slog.String("err", err.Error()),
		)
		return Place{}, failure.Wrap(failure.LookupFailure, err, "I could not find out where you are right now.")
	}

	var place Place
	for _, r := range results {
		for _, c := range r.AddressComponents {
			if place.City == "" && hasType(c.Types, "locality") {
				place.City = c.LongName
			}
			if place.Country == "" && hasType(c.Types, "country") {
				place.Country = c.LongName
			}
		}
	}
	logger.Debug(ctx, component, "geo.reverse",
		slog.String("status", "ok"),
		slog.Int("count", len(results)),
		slog.Duration("duration", took),
	)
	return place, nil
}

// Unavailable fails every lookup with the configured reason.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Resolve(context.Context, float64, float64) (Place, error) {
	return Place{}, failure.Wrap(failure.LookupFailure, u.Reason, "Location lookup is not available right now.")
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}
