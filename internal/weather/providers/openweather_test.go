package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-voice/internal/store"
	"github.com/i474232898/weather-voice/internal/weather"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, opts ...Option) *OpenWeatherProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL)}, opts...)
	return NewOpenWeatherProvider(srv.Client(), "test-key", opts...)
}

func TestFetchRequestsOneCall(t *testing.T) {
	body := oneCallFixture(t, 24, nil)

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/data/3.0/onecall" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q.Get("exclude") != "minutely" || q.Get("units") != "imperial" || q.Get("appid") != "test-key" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("lat") != "48.8534" || q.Get("lon") != "2.3488" {
			t.Errorf("coordinates = %s,%s", q.Get("lat"), q.Get("lon"))
		}
		w.Write(body)
	})

	m, err := p.Fetch(context.Background(), paris, weather.Imperial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Units != weather.Imperial || m.Location != paris {
		t.Fatalf("model = %s %+v", m.Units, m.Location)
	}
}

func TestFetchServesFreshPayloadFromCache(t *testing.T) {
	body := oneCallFixture(t, 24, nil)
	var calls int32

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write(body)
	}, WithCache(store.NewMemoryStore(10), time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := p.Fetch(context.Background(), paris, weather.Metric); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("upstream calls = %d, want 1", got)
	}

	// The other unit system is a different payload.
	if _, err := p.Fetch(context.Background(), paris, weather.Imperial); err != nil {
		t.Fatalf("imperial fetch: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("upstream calls = %d, want 2", got)
	}
}

func TestFetchPassesProviderErrorThrough(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"cod":"400","message":"wrong latitude"}`))
	})

	_, err := p.Fetch(context.Background(), weather.Location{Lat: 95, Lon: 0}, weather.Metric)

	var upstream *weather.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want *weather.UpstreamError", err)
	}
	if upstream.Status != http.StatusBadRequest || upstream.Message != "wrong latitude" {
		t.Fatalf("upstream = %+v", upstream)
	}
	if !upstream.ClientFault() {
		t.Fatal("400 should be a client fault")
	}
}

func TestFetchDoesNotRetryByDefault(t *testing.T) {
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := p.Fetch(context.Background(), paris, weather.Metric)

	var upstream *weather.UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want 503 upstream error", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("upstream calls = %d, want 1", got)
	}
}

func TestFetchRetriesServerErrorsWhenEnabled(t *testing.T) {
	body := oneCallFixture(t, 24, nil)
	var calls int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(body)
	}, WithBackoff(BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}))

	if _, err := p.Fetch(context.Background(), paris, weather.Metric); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("upstream calls = %d, want 2", got)
	}
}

func TestFetchWithoutKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "")
	if _, err := p.Fetch(context.Background(), paris, weather.Metric); !errors.Is(err, weather.ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}

func TestGeocode(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geo/1.0/direct" || r.URL.Query().Get("limit") != "1" {
			t.Errorf("unexpected request %s", r.URL)
		}
		switch r.URL.Query().Get("q") {
		case "Paris":
			w.Write([]byte(`[{"name":"Paris","lat":48.8534,"lon":2.3488,"country":"FR","state":"Ile-de-France"}]`))
		default:
			w.Write([]byte(`[]`))
		}
	})

	loc, err := p.Geocode(context.Background(), "Paris")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != paris {
		t.Fatalf("location = %+v, want %+v", loc, paris)
	}

	if _, err := p.Geocode(context.Background(), "Atlantis"); !errors.Is(err, weather.ErrLocationNotFound) {
		t.Fatalf("error = %v, want ErrLocationNotFound", err)
	}
}

func TestGeocodeTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewOpenWeatherProvider(http.DefaultClient, "test-key", WithBaseURL(srv.URL))
	_, err := p.Geocode(context.Background(), "Paris")

	var upstream *weather.UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want 503 upstream error", err)
	}
}

func TestCacheKeySeparatesUnits(t *testing.T) {
	if CacheKey(48.8534, 2.3488, weather.Metric) == CacheKey(48.8534, 2.3488, weather.Imperial) {
		t.Fatal("metric and imperial must not share a cache key")
	}
	if CacheKey(48.8534, 2.3488, weather.Metric) != CacheKey(48.85341, 2.34881, weather.Metric) {
		t.Fatal("nearby coordinates should share a cache cell")
	}
}
