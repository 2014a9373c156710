package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-voice/internal/weather"
)

func TestFetchDual(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		if r.URL.Path != "/api/weather" || q.Get("city") != "Paris" {
			t.Errorf("unexpected request %s", r.URL)
		}
		json.NewEncoder(w).Encode(weather.Model{
			Location: weather.Location{Name: "Paris, FR"},
			Units:    weather.Units(q.Get("units")),
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 0)
	d, err := c.FetchDual(context.Background(), weather.Query{City: "Paris"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Metric.Units != weather.Metric || d.Imperial.Units != weather.Imperial {
		t.Fatalf("units = %s / %s", d.Metric.Units, d.Imperial.Units)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestFetchDualFailsAsAWhole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("units") == "imperial" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"City not found"}`))
			return
		}
		json.NewEncoder(w).Encode(weather.Model{Units: weather.Metric})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 0)
	d, err := c.FetchDual(context.Background(), weather.Query{City: "Atlantis"})

	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound || se.Message != "City not found" {
		t.Fatalf("error = %v", err)
	}
	if d.Metric.Units != "" {
		t.Fatalf("partial result returned: %+v", d)
	}
}

func TestWeatherSendsCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lat") != "48.85" || q.Get("lon") != "2.35" || q.Get("city") != "" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 0)
	if _, err := c.Weather(context.Background(), weather.CoordinatesQuery(48.85, 2.35), weather.Metric); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSummarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			WeatherData weather.Model `json:"weatherData"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.WeatherData.Location.Name != "Paris, FR" {
			t.Errorf("location = %q", body.WeatherData.Location.Name)
		}
		w.Write([]byte(`{"summary":"Good morning, Paris."}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 0)
	res, err := c.Summarize(context.Background(), weather.Model{Location: weather.Location{Name: "Paris, FR"}, Units: weather.Imperial})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Good morning, Paris." || res.Units != weather.Imperial {
		t.Fatalf("result = %+v", res)
	}
}

func TestUnknownErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 0)
	_, err := c.Summarize(context.Background(), weather.Model{})

	var se *StatusError
	if !errors.As(err, &se) || se.Message != "An unknown API error occurred." {
		t.Fatalf("error = %v", err)
	}
}
