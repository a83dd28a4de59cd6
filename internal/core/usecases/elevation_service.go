package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/bizibide/internal/core/domain"
	"github.com/samirrijal/bizibide/internal/core/ports"
	"github.com/samirrijal/bizibide/internal/pkg/metrics"
)

// ElevationService enriches rides with terrain data from the external
// elevation provider.
type ElevationService struct {
	rides    ports.RideRepository
	provider ports.ElevationProvider
	cache    ports.CacheService
}

// NewElevationService creates a new ElevationService.
func NewElevationService(rides ports.RideRepository, provider ports.ElevationProvider, cache ports.CacheService) *ElevationService {
	return &ElevationService{rides: rides, provider: provider, cache: cache}
}

// ProfileForRide returns elevation samples covering the ride's bounding box.
// Results are cached: the raster does not change and neither does the ride.
func (s *ElevationService) ProfileForRide(ctx context.Context, rideID string, limit int) ([]domain.ElevationSample, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("elevation provider not configured")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	key := fmt.Sprintf("rides:elevation:%s:%d", rideID, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var samples []domain.ElevationSample
			if err := json.Unmarshal(data, &samples); err == nil {
				metrics.CacheHits.WithLabelValues("ride_elevation").Inc()
				return samples, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("ride_elevation").Inc()
	}

	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	samples, err := s.provider.SamplesInArea(ctx, ride.Bounds, limit)
	if err != nil {
		return nil, fmt.Errorf("query elevation provider: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(samples); err == nil {
			_ = s.cache.Set(ctx, key, data, 86400)
		}
	}
	return samples, nil
}

// SamplesInArea proxies an arbitrary-area query to the provider, uncached.
func (s *ElevationService) SamplesInArea(ctx context.Context, area domain.MapArea, limit int) ([]domain.ElevationSample, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("elevation provider not configured")
	}
	if area.MinLat > area.MaxLat || area.MinLon > area.MaxLon {
		return nil, fmt.Errorf("invalid area: min bounds exceed max bounds")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.provider.SamplesInArea(ctx, area, limit)
}
