package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/samirrijal/bizibide/internal/core/domain"
	"github.com/samirrijal/bizibide/internal/core/ports"
	"github.com/samirrijal/bizibide/internal/gpx"
	"github.com/samirrijal/bizibide/internal/pkg/metrics"
)

// ErrEmptyTrack is returned when a track file parses cleanly but contains no
// usable points.
var ErrEmptyTrack = errors.New("track file contains no points")

// RideService owns the ride import pipeline and ride queries.
type RideService struct {
	rides     ports.RideRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
}

// NewRideService creates a new RideService.
func NewRideService(rides ports.RideRepository, cache ports.CacheService, publisher ports.EventPublisher) *RideService {
	return &RideService{rides: rides, cache: cache, publisher: publisher}
}

// Import parses a track file from r, derives the ride aggregates and persists
// the result. The parse honours ctx cancellation at track-point granularity;
// a cancelled import leaves nothing behind.
func (s *RideService) Import(ctx context.Context, r io.Reader) (*domain.Ride, error) {
	res, err := gpx.Parse(ctx, r)
	if err != nil {
		metrics.ImportErrors.Inc()
		return nil, fmt.Errorf("parse track file: %w", err)
	}
	if res.Track == nil || res.Track.PointCount() == 0 {
		metrics.ImportErrors.Inc()
		return nil, ErrEmptyTrack
	}

	track := res.Track
	bounds, _ := track.Bounds()

	ride := &domain.Ride{
		DistanceM:    track.Distance(),
		DurationMs:   track.Duration(),
		SegmentCount: len(track.Segments),
		PointCount:   track.PointCount(),
		Bounds:       bounds,
		CreatedAt:    time.Now().UTC(),
	}
	if res.Name != nil {
		ride.Name = *res.Name
	}
	if ts := startTimestamp(res, track); ts != nil {
		t := time.UnixMilli(*ts).UTC()
		ride.StartedAt = &t
	}

	if err := s.rides.Insert(ctx, ride, track); err != nil {
		metrics.ImportErrors.Inc()
		return nil, fmt.Errorf("store ride: %w", err)
	}

	metrics.RidesImported.Inc()
	if res.DroppedPoints > 0 || res.DroppedFields > 0 {
		slog.Warn("ride imported with recoverable parse errors",
			"ride_id", ride.ID,
			"dropped_points", res.DroppedPoints,
			"dropped_fields", res.DroppedFields)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishRideImported(ctx, &domain.RideEvent{
			RideID:     ride.ID,
			Name:       ride.Name,
			DistanceM:  ride.DistanceM,
			PointCount: ride.PointCount,
			ImportedAt: ride.CreatedAt,
		})
	}

	return ride, nil
}

// startTimestamp prefers the document's recording time and falls back to the
// earliest per-point timestamp.
func startTimestamp(res *gpx.Result, track *domain.Track) *int64 {
	if res.Time != nil {
		return res.Time
	}
	return track.StartTime()
}

// Get returns a ride by ID.
func (s *RideService) Get(ctx context.Context, id string) (*domain.Ride, error) {
	return s.rides.GetByID(ctx, id)
}

// List returns stored rides, newest first, plus the total count.
func (s *RideService) List(ctx context.Context, limit, offset int) ([]domain.Ride, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.rides.List(ctx, limit, offset)
}

// ListInArea returns rides whose bounding box intersects the given area.
func (s *RideService) ListInArea(ctx context.Context, area domain.MapArea, limit int) ([]domain.Ride, error) {
	if area.MinLat > area.MaxLat || area.MinLon > area.MaxLon {
		return nil, fmt.Errorf("invalid area: min bounds exceed max bounds")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.rides.ListInArea(ctx, area, limit)
}

// Delete removes a ride and its points, and drops its cached artifacts.
func (s *RideService) Delete(ctx context.Context, id string) error {
	if err := s.rides.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, geojsonCacheKey(id))
	}
	return nil
}

// GeoJSON renders a ride as a GeoJSON Feature with one LineString per
// recorded segment (a MultiLineString geometry), cache-aside.
func (s *RideService) GeoJSON(ctx context.Context, id string) ([]byte, error) {
	key := geojsonCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			metrics.CacheHits.WithLabelValues("ride_geojson").Inc()
			return data, nil
		}
		metrics.CacheMisses.WithLabelValues("ride_geojson").Inc()
	}

	ride, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	track, err := s.rides.Track(ctx, id)
	if err != nil {
		return nil, err
	}

	coords := make([][][]float64, 0, len(track.Segments))
	for _, seg := range track.Segments {
		line := make([][]float64, 0, len(seg))
		for _, p := range seg {
			if p.Elevation != nil {
				line = append(line, []float64{p.Lon, p.Lat, *p.Elevation})
			} else {
				line = append(line, []float64{p.Lon, p.Lat})
			}
		}
		coords = append(coords, line)
	}

	props := map[string]any{
		"id":            ride.ID,
		"name":          ride.Name,
		"distance_m":    ride.DistanceM,
		"segment_count": ride.SegmentCount,
		"point_count":   ride.PointCount,
	}
	if ride.DurationMs != nil {
		props["duration_ms"] = *ride.DurationMs
	}
	if ride.StartedAt != nil {
		props["started_at"] = ride.StartedAt.Format(time.RFC3339)
	}

	feature := map[string]any{
		"type":       "Feature",
		"properties": props,
		"geometry": map[string]any{
			"type":        "MultiLineString",
			"coordinates": coords,
		},
		"bbox": []float64{ride.Bounds.MinLon, ride.Bounds.MinLat, ride.Bounds.MaxLon, ride.Bounds.MaxLat},
	}

	data, err := json.Marshal(feature)
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}

	// Tracks never change after import, cache generously
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, data, 3600)
	}
	return data, nil
}

func geojsonCacheKey(id string) string {
	return "rides:geojson:" + id
}
