package weather

import (
	"context"
	"time"
)

// Geocoder resolves a free-text place name to its best-ranked Location.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, place string) (Location, error)
}

// Fetcher retrieves and normalizes the weather for coordinates in one unit system.
// Implementations apply normalization before returning.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, loc Location, units Units) (Model, error)
}

// PayloadCache holds raw provider payloads for a freshness window.
// Get reports a miss with ok == false and a nil error.
type PayloadCache interface {
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}
