package weather

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingLocation is returned when a query has neither a city nor both coordinates.
	ErrMissingLocation = errors.New("missing location data; provide lat/lon or a city")
	// ErrInvalidLocation is returned for coordinates outside the valid range.
	ErrInvalidLocation = errors.New("invalid coordinates")
	// ErrInvalidUnits is returned for a unit system other than metric or imperial.
	ErrInvalidUnits = errors.New("units must be metric or imperial")
	// ErrLocationNotFound is returned when the geocoder has no match for a place name.
	ErrLocationNotFound = errors.New("city not found")
	// ErrNotConfigured is returned when a provider credential is missing.
	ErrNotConfigured = errors.New("weather provider api key is not configured")
)

// UpstreamError carries a non-success answer from an external service.
// Status and Message are the provider's own, unmodified.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
}

// ClientFault reports whether the upstream rejected the request itself
// (bad coordinates, unknown key) rather than being unavailable.
func (e *UpstreamError) ClientFault() bool {
	return e.Status >= 400 && e.Status < 500 && e.Status != http.StatusTooManyRequests
}

// Unavailable builds an UpstreamError for a transport failure.
func Unavailable(service string, err error) *UpstreamError {
	return &UpstreamError{
		Service: service,
		Status:  http.StatusServiceUnavailable,
		Message: err.Error(),
	}
}
