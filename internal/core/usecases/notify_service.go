package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samirrijal/bizibide/internal/core/domain"
	"github.com/samirrijal/bizibide/internal/core/ports"
)

// NotifyService turns imported-ride events into broadcast updates for
// connected WebSocket clients.
type NotifyService struct {
	rides     ports.RideRepository
	publisher ports.EventPublisher
}

// NewNotifyService creates a new NotifyService.
func NewNotifyService(rides ports.RideRepository, publisher ports.EventPublisher) *NotifyService {
	return &NotifyService{rides: rides, publisher: publisher}
}

// broadcastUpdate is the wire shape pushed to subscribed clients.
type broadcastUpdate struct {
	Type       string          `json:"type"`
	RideID     string          `json:"ride_id"`
	Name       string          `json:"name,omitempty"`
	DistanceM  float64         `json:"distance_m"`
	PointCount int             `json:"point_count"`
	Bounds     *domain.MapArea `json:"bounds,omitempty"`
	Time       time.Time       `json:"time"`
}

// HandleRideImported enriches the event with the stored ride's bounds and
// fans it out on the broadcast subject.
func (s *NotifyService) HandleRideImported(ctx context.Context, event *domain.RideEvent) error {
	update := broadcastUpdate{
		Type:       "ride_imported",
		RideID:     event.RideID,
		Name:       event.Name,
		DistanceM:  event.DistanceM,
		PointCount: event.PointCount,
		Time:       event.ImportedAt,
	}

	// Bounds are not on the event, fetch them. A missing ride is not fatal,
	// the update still carries the event fields.
	if ride, err := s.rides.GetByID(ctx, event.RideID); err == nil && ride != nil {
		update.Bounds = &ride.Bounds
	}

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}
	if err := s.publisher.PublishBroadcast(ctx, data); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}
