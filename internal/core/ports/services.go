package ports

import (
	"context"

	"github.com/samirrijal/bizibide/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRideImported(ctx context.Context, event *domain.RideEvent) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber consumes domain events from a message broker.
type EventSubscriber interface {
	SubscribeRideImported(ctx context.Context, handler func(ctx context.Context, event *domain.RideEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ElevationProvider queries the external elevation raster by map area.
// The four decimal-degree bounds are forwarded to the provider verbatim;
// their precision is the caller's business.
type ElevationProvider interface {
	SamplesInArea(ctx context.Context, area domain.MapArea, limit int) ([]domain.ElevationSample, error)
}
