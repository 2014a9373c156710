package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mmcloughlin/geohash"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-voice/internal/weather"
)

const (
	openWeatherBaseURL = "https://api.openweathermap.org"

	// cacheKeyPrecision is a ~150m geohash cell; requests inside one cell share a payload.
	cacheKeyPrecision = 7
)

// OpenWeatherProvider implements weather.Fetcher on top of the One Call 3.0
// API and weather.Geocoder on top of the direct geocoding API.
type OpenWeatherProvider struct {
	name     string
	apiKey   string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	cache    weather.PayloadCache
	cacheTTL time.Duration
}

// Option customizes an OpenWeatherProvider.
type Option func(*OpenWeatherProvider)

// WithBaseURL points the provider at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(p *OpenWeatherProvider) { p.baseURL = u }
}

// WithCache enables the freshness-window payload cache.
func WithCache(c weather.PayloadCache, ttl time.Duration) Option {
	return func(p *OpenWeatherProvider) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithBackoff overrides the retry policy.
func WithBackoff(b BackoffConfig) Option {
	return func(p *OpenWeatherProvider) { p.httpCfg.Backoff = b }
}

// WithRateLimit throttles outbound calls to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(p *OpenWeatherProvider) {
		if rps > 0 {
			p.httpCfg.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...Option) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: openWeatherBaseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("openweather"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Geocode resolves place to the provider's top-ranked match.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, place string) (weather.Location, error) {
	if p.apiKey == "" {
		return weather.Location{}, weather.ErrNotConfigured
	}
	if place == "" {
		return weather.Location{}, weather.ErrMissingLocation
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", place)
		values.Set("limit", "1")
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s/geo/1.0/direct?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	body, err := doRequestWithResilience(ctx, "openweather geocoding", p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Location{}, err
	}

	var matches []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
		State   string  `json:"state"`
	}
	if err := json.Unmarshal(body, &matches); err != nil {
		return weather.Location{}, fmt.Errorf("decode geocoding response: %w", err)
	}
	if len(matches) == 0 {
		return weather.Location{}, fmt.Errorf("%w: %q", weather.ErrLocationNotFound, place)
	}

	best := matches[0]
	name := best.Name
	if best.Country != "" {
		name = fmt.Sprintf("%s, %s", best.Name, best.Country)
	}

	return weather.Location{Name: name, Lat: best.Lat, Lon: best.Lon}, nil
}

// Fetch retrieves current, hourly, daily and alert data for loc and
// normalizes it. Payloads are served from the cache while fresh.
func (p *OpenWeatherProvider) Fetch(ctx context.Context, loc weather.Location, units weather.Units) (weather.Model, error) {
	payload, err := p.FetchPayload(ctx, loc.Lat, loc.Lon, units)
	if err != nil {
		return weather.Model{}, err
	}
	return Normalize(payload, loc, units), nil
}

// FetchPayload returns the raw One Call payload for the coordinates.
func (p *OpenWeatherProvider) FetchPayload(ctx context.Context, lat, lon float64, units weather.Units) (OneCallPayload, error) {
	if p.apiKey == "" {
		return OneCallPayload{}, weather.ErrNotConfigured
	}

	key := CacheKey(lat, lon, units)
	fields := log.Fields{"provider": p.name, "key": key}

	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			log.WithFields(fields).WithFields(log.Fields{"error": err}).Warn("payload cache read failed")
		} else if ok {
			var payload OneCallPayload
			if err := json.Unmarshal(cached, &payload); err == nil {
				log.WithFields(fields).Debug("payload cache hit")
				return payload, nil
			}
			log.WithFields(fields).Warn("discarding undecodable cached payload")
		}
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("units", string(units))
		values.Set("exclude", "minutely")
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s/data/3.0/onecall?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	body, err := doRequestWithResilience(ctx, "openweather onecall", p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return OneCallPayload{}, err
	}

	var payload OneCallPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return OneCallPayload{}, fmt.Errorf("decode onecall response: %w", err)
	}

	if p.cache != nil && p.cacheTTL > 0 {
		if err := p.cache.Set(ctx, key, body, p.cacheTTL); err != nil {
			log.WithFields(fields).WithFields(log.Fields{"error": err}).Warn("payload cache write failed")
		}
	}

	return payload, nil
}

// CacheKey identifies a payload by geohash cell and unit system.
func CacheKey(lat, lon float64, units weather.Units) string {
	return fmt.Sprintf("onecall:%s:%s", geohash.EncodeWithPrecision(lat, lon, cacheKeyPrecision), units)
}

// Ensure OpenWeatherProvider implements the domain interfaces.
var (
	_ weather.Fetcher  = (*OpenWeatherProvider)(nil)
	_ weather.Geocoder = (*OpenWeatherProvider)(nil)
)
