package weather

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/geo/s2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// CurrentLocationName is the display name used when the caller sent raw coordinates.
const CurrentLocationName = "Current Location"

// Service resolves locations and orchestrates provider fetches.
type Service struct {
	geocoder Geocoder
	fetcher  Fetcher
}

// NewService creates a new Service.
func NewService(geocoder Geocoder, fetcher Fetcher) *Service {
	return &Service{
		geocoder: geocoder,
		fetcher:  fetcher,
	}
}

// Resolve turns a query into a Location. A city goes through the geocoder;
// coordinates are validated and used as-is.
func (s *Service) Resolve(ctx context.Context, q Query) (Location, error) {
	if city := strings.TrimSpace(q.City); city != "" {
		if s.geocoder == nil {
			return Location{}, ErrNotConfigured
		}
		return s.geocoder.Geocode(ctx, city)
	}

	if !q.HasCoordinates() {
		return Location{}, ErrMissingLocation
	}
	if !s2.LatLngFromDegrees(*q.Lat, *q.Lon).IsValid() {
		return Location{}, fmt.Errorf("%w: %f,%f", ErrInvalidLocation, *q.Lat, *q.Lon)
	}

	return Location{Name: CurrentLocationName, Lat: *q.Lat, Lon: *q.Lon}, nil
}

// Fetch resolves the query and fetches a single unit system.
func (s *Service) Fetch(ctx context.Context, q Query, units Units) (Model, error) {
	loc, err := s.Resolve(ctx, q)
	if err != nil {
		return Model{}, err
	}
	return s.fetch(ctx, loc, units)
}

func (s *Service) fetch(ctx context.Context, loc Location, units Units) (Model, error) {
	if s.fetcher == nil {
		return Model{}, ErrNotConfigured
	}
	return s.fetcher.Fetch(ctx, loc, units)
}

// FetchDual resolves the query once and fetches the metric and imperial
// models concurrently. Either both models are returned or an error is; a
// failure on one branch cancels the other and discards its result.
func (s *Service) FetchDual(ctx context.Context, q Query) (Dual, error) {
	runID := uuid.NewString()
	started := time.Now()

	loc, err := s.Resolve(ctx, q)
	if err != nil {
		return Dual{}, err
	}

	fields := log.Fields{"run": runID, "location": loc.Key()}
	log.WithFields(fields).Debug("dual fetch started")

	var (
		mu     sync.Mutex
		models = make(map[Units]Model, len(AllUnits))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range AllUnits {
		u := u
		g.Go(func() error {
			m, err := s.fetch(gctx, loc, u)
			if err != nil {
				return fmt.Errorf("%s fetch: %w", u, err)
			}

			mu.Lock()
			models[u] = m
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.WithFields(fields).WithFields(log.Fields{"error": err}).Warn("dual fetch failed")
		return Dual{}, err
	}

	log.WithFields(fields).WithFields(log.Fields{"took": time.Since(started).Round(time.Millisecond)}).
		Info("dual fetch completed")

	return Dual{
		RunID:    runID,
		Metric:   models[Metric],
		Imperial: models[Imperial],
	}, nil
}

// WarmUp fetches both unit systems for each city so the payload cache is
// fresh when users ask for them. Failures are logged and skipped.
func (s *Service) WarmUp(ctx context.Context, cities []string) {
	var wg sync.WaitGroup
	for _, city := range cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.FetchDual(ctx, Query{City: city}); err != nil {
				log.WithFields(log.Fields{"city": city, "error": err}).Warn("warm-up fetch failed")
			}
		}()
	}
	wg.Wait()
}
