package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-voice/internal/common"
	"github.com/i474232898/weather-voice/internal/weather"
)

// GoogleGeocoder implements weather.Geocoder with the Google Geocoding API.
type GoogleGeocoder struct {
	name string
	// lookup and reverse default to the geocoder package; tests replace them.
	lookup  func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGoogleGeocoder configures the geocoder package with apiKey.
// The key is package-global in the underlying library.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{
		name:    "google",
		lookup:  geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

func (g *GoogleGeocoder) Name() string {
	return g.name
}

type googleResult struct {
	loc weather.Location
	err error
}

// Geocode resolves place and names it after the reverse-geocoded city and
// country, falling back to the query text.
func (g *GoogleGeocoder) Geocode(ctx context.Context, place string) (weather.Location, error) {
	if place == "" {
		return weather.Location{}, weather.ErrMissingLocation
	}

	// The library is not context-aware; run it aside and honour ctx here.
	done := make(chan googleResult, 1)
	go func() {
		loc, err := g.resolve(place)
		done <- googleResult{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Location{}, ctx.Err()
	case r := <-done:
		return r.loc, r.err
	}
}

func (g *GoogleGeocoder) resolve(place string) (weather.Location, error) {
	pos, err := g.lookup(geocoder.Address{City: place})
	if err != nil {
		if common.HasAny(strings.ToUpper(err.Error()), "ZERO_RESULTS", "NOT FOUND") {
			return weather.Location{}, fmt.Errorf("%w: %q", weather.ErrLocationNotFound, place)
		}
		return weather.Location{}, weather.Unavailable("google geocoding", err)
	}

	name := place
	if addrs, err := g.reverse(pos); err == nil && len(addrs) > 0 {
		if a := addrs[0]; a.City != "" {
			name = a.City
			if a.Country != "" {
				name = fmt.Sprintf("%s, %s", a.City, a.Country)
			}
		}
	}

	return weather.Location{Name: name, Lat: pos.Latitude, Lon: pos.Longitude}, nil
}

var _ weather.Geocoder = (*GoogleGeocoder)(nil)
