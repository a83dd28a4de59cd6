package domain

import (
	"time"
)

// Ride is a stored recorded ride: the track plus the aggregates derived from
// it at import time.
type Ride struct {
	ID           string     `json:"id"`
	Name         string     `json:"name,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	DistanceM    float64    `json:"distance_m"`
	DurationMs   *int64     `json:"duration_ms,omitempty"`
	SegmentCount int        `json:"segment_count"`
	PointCount   int        `json:"point_count"`
	Bounds       MapArea    `json:"bounds"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RideEvent is published on NATS when a ride finishes importing.
type RideEvent struct {
	RideID     string    `json:"ride_id"`
	Name       string    `json:"name,omitempty"`
	DistanceM  float64   `json:"distance_m"`
	PointCount int       `json:"point_count"`
	ImportedAt time.Time `json:"imported_at"`
}

// ElevationSample is one raster sample returned by the elevation provider.
type ElevationSample struct {
	Location   GeoPoint `json:"location"`
	ElevationM float64  `json:"elevation_m"`
}
