package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/bizibide/internal/core/domain"
	"github.com/samirrijal/bizibide/internal/core/usecases"
)

func TestNotifyService_HandleRideImported(t *testing.T) {
	bounds := domain.MapArea{MinLat: 43.26, MinLon: -2.94, MaxLat: 43.27, MaxLon: -2.93}
	repo := &mockRideRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Ride, error) {
			if id != "ride-1" {
				t.Errorf("expected lookup of ride-1, got %s", id)
			}
			return &domain.Ride{ID: id, Bounds: bounds}, nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewNotifyService(repo, pub)

	event := &domain.RideEvent{
		RideID:     "ride-1",
		Name:       "Commute",
		DistanceM:  912.5,
		PointCount: 2,
		ImportedAt: time.Date(2021, 3, 1, 10, 10, 0, 0, time.UTC),
	}
	if err := svc.HandleRideImported(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(pub.broadcast) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(pub.broadcast))
	}

	var update struct {
		Type       string          `json:"type"`
		RideID     string          `json:"ride_id"`
		Name       string          `json:"name"`
		DistanceM  float64         `json:"distance_m"`
		PointCount int             `json:"point_count"`
		Bounds     *domain.MapArea `json:"bounds"`
	}
	if err := json.Unmarshal(pub.broadcast[0], &update); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if update.Type != "ride_imported" {
		t.Errorf("expected type ride_imported, got %q", update.Type)
	}
	if update.RideID != "ride-1" || update.Name != "Commute" {
		t.Errorf("wrong identity fields: %+v", update)
	}
	if update.DistanceM != 912.5 || update.PointCount != 2 {
		t.Errorf("wrong aggregates: %+v", update)
	}
	if update.Bounds == nil || *update.Bounds != bounds {
		t.Errorf("expected bounds %+v, got %+v", bounds, update.Bounds)
	}
}

func TestNotifyService_MissingRideStillBroadcasts(t *testing.T) {
	repo := &mockRideRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Ride, error) {
			return nil, errors.New("not found")
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewNotifyService(repo, pub)

	event := &domain.RideEvent{RideID: "gone", DistanceM: 100, PointCount: 5, ImportedAt: time.Now()}
	if err := svc.HandleRideImported(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(pub.broadcast) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(pub.broadcast))
	}
	var update struct {
		Bounds *domain.MapArea `json:"bounds"`
	}
	if err := json.Unmarshal(pub.broadcast[0], &update); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if update.Bounds != nil {
		t.Errorf("expected no bounds for a missing ride, got %+v", update.Bounds)
	}
}
