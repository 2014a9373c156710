package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-voice/internal/summary"
	"github.com/i474232898/weather-voice/internal/weather"
)

// StatusError is a non-success answer from the server.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the weather-voice HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, timeout time.Duration, maxRetries int) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = maxRetries
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	hc := rc.StandardClient()
	hc.Timeout = timeout

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Weather fetches one unit system for q.
func (c *Client) Weather(ctx context.Context, q weather.Query, units weather.Units) (weather.Model, error) {
	values := url.Values{}
	if q.City != "" {
		values.Set("city", q.City)
	} else if q.HasCoordinates() {
		values.Set("lat", strconv.FormatFloat(*q.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(*q.Lon, 'f', -1, 64))
	}
	values.Set("units", string(units))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/weather?"+values.Encode(), nil)
	if err != nil {
		return weather.Model{}, err
	}

	var m weather.Model
	if err := c.do(req, &m); err != nil {
		return weather.Model{}, err
	}
	return m, nil
}

// FetchDual requests both unit systems concurrently; either both succeed or
// the first error is returned.
func (c *Client) FetchDual(ctx context.Context, q weather.Query) (weather.Dual, error) {
	var (
		mu  sync.Mutex
		out weather.Dual
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range weather.AllUnits {
		u := u
		g.Go(func() error {
			m, err := c.Weather(gctx, q, u)
			if err != nil {
				return err
			}
			mu.Lock()
			if u == weather.Imperial {
				out.Imperial = m
			} else {
				out.Metric = m
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return weather.Dual{}, err
	}
	return out, nil
}

// Summarize asks the server for a summary of m.
func (c *Client) Summarize(ctx context.Context, m weather.Model) (summary.Result, error) {
	body, err := json.Marshal(map[string]weather.Model{"weatherData": m})
	if err != nil {
		return summary.Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/summarize", bytes.NewReader(body))
	if err != nil {
		return summary.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.do(req, &out); err != nil {
		return summary.Result{}, err
	}
	return summary.Result{Text: out.Summary, Units: m.Units}, nil
}

func (c *Client) do(req *http.Request, into interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := "An unknown API error occurred."
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}

	return json.Unmarshal(raw, into)
}
