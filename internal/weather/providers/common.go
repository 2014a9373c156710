package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-voice/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
// MaxRetries of zero means a single attempt.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
	// Limiter throttles outbound calls; nil disables throttling.
	Limiter *rate.Limiter
}

// DefaultBackoff is used when the caller leaves Backoff unset.
var DefaultBackoff = BackoffConfig{
	MaxRetries:      0,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var (
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 4 << 20

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

type rawResponse struct {
	status int
	body   []byte
}

// doRequestWithResilience executes the request through the limiter and the
// circuit breaker and returns the body of a 2xx response. Any other status is
// returned as a *weather.UpstreamError carrying the provider's status and
// message. Transport errors, 429 and 5xx are retried while retries remain.
// 4xx answers do not count against the breaker.
func doRequestWithResilience(
	ctx context.Context,
	service string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) ([]byte, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if cfg.Limiter != nil {
			if err := cfg.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait canceled: %w", err)
			}
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, weather.Unavailable(service, execErr)
			}
			defer resp.Body.Close()

			body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			if readErr != nil {
				return nil, weather.Unavailable(service, readErr)
			}

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return nil, upstreamError(service, resp.StatusCode, body)
			}

			return rawResponse{status: resp.StatusCode, body: body}, nil
		})

		if err == nil {
			raw, ok := result.(rawResponse)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			if raw.status < 200 || raw.status >= 300 {
				return nil, upstreamError(service, raw.status, raw.body)
			}
			return raw.body, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &weather.UpstreamError{
				Service: service,
				Status:  http.StatusServiceUnavailable,
				Message: "circuit breaker open: " + err.Error(),
			}
		}

		if attempt >= cfg.Backoff.MaxRetries {
			return nil, err
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

// upstreamError extracts the provider's own message from an error body.
// OpenWeather answers {"cod": ..., "message": "..."}.
func upstreamError(service string, status int, body []byte) *weather.UpstreamError {
	var envelope struct {
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &envelope); err == nil {
		msg = envelope.Message
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	return &weather.UpstreamError{
		Service: service,
		Status:  status,
		Message: msg,
	}
}
