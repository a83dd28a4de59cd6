package ports

import (
	"context"

	"github.com/samirrijal/bizibide/internal/core/domain"
)

// RideRepository persists rides and their track points.
type RideRepository interface {
	// Insert stores the ride and its full track atomically.
	Insert(ctx context.Context, ride *domain.Ride, track *domain.Track) error
	GetByID(ctx context.Context, id string) (*domain.Ride, error)
	List(ctx context.Context, limit, offset int) ([]domain.Ride, int, error)
	// ListInArea returns rides whose bounding box intersects area.
	ListInArea(ctx context.Context, area domain.MapArea, limit int) ([]domain.Ride, error)
	// Track reloads the stored track of a ride, segments in recorded order.
	Track(ctx context.Context, rideID string) (*domain.Track, error)
	Delete(ctx context.Context, id string) error
}
