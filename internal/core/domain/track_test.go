package domain_test

import (
	"math"
	"testing"

	"github.com/samirrijal/bizibide/internal/core/domain"
)

func pt(lat, lon float64) domain.TrackPoint {
	return domain.TrackPoint{GeoPoint: domain.GeoPoint{Lat: lat, Lon: lon}}
}

func ptAt(lat, lon float64, ts int64) domain.TrackPoint {
	p := pt(lat, lon)
	p.Timestamp = &ts
	return p
}

func TestTrack_Distance_SingleSegment(t *testing.T) {
	a := domain.GeoPoint{Lat: 43.263, Lon: -2.935}
	b := domain.GeoPoint{Lat: 43.270, Lon: -2.940}

	track := &domain.Track{Segments: [][]domain.TrackPoint{
		{pt(a.Lat, a.Lon), pt(b.Lat, b.Lon)},
	}}

	want := a.DistanceTo(b)
	if got := track.Distance(); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %.3f, got %.3f", want, got)
	}
}

func TestTrack_Distance_SkipsSegmentGaps(t *testing.T) {
	// Two segments: the jump between the last point of the first and the
	// first point of the second must not be counted.
	track := &domain.Track{Segments: [][]domain.TrackPoint{
		{pt(0, 0), pt(0, 1)},
		{pt(10, 10), pt(10, 11)},
	}}

	want := domain.GeoPoint{Lat: 0, Lon: 0}.DistanceTo(domain.GeoPoint{Lat: 0, Lon: 1}) +
		domain.GeoPoint{Lat: 10, Lon: 10}.DistanceTo(domain.GeoPoint{Lat: 10, Lon: 11})

	if got := track.Distance(); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %.3f, got %.3f", want, got)
	}
}

func TestTrack_Distance_Empty(t *testing.T) {
	track := &domain.Track{}
	if got := track.Distance(); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}

	track = &domain.Track{Segments: [][]domain.TrackPoint{{pt(43, -2)}}}
	if got := track.Distance(); got != 0 {
		t.Errorf("single point: expected 0, got %f", got)
	}
}

func TestTrack_Duration(t *testing.T) {
	track := &domain.Track{Segments: [][]domain.TrackPoint{
		{ptAt(0, 0, 5000), ptAt(0, 1, 1000)},
		{pt(0, 2), ptAt(0, 3, 61000)},
	}}

	d := track.Duration()
	if d == nil {
		t.Fatal("expected a duration, got nil")
	}
	if *d != 60000 {
		t.Errorf("expected 60000 ms, got %d", *d)
	}
}

func TestTrack_Duration_NoTimestamps(t *testing.T) {
	track := &domain.Track{Segments: [][]domain.TrackPoint{
		{pt(0, 0), pt(0, 1)},
	}}
	if d := track.Duration(); d != nil {
		t.Errorf("expected nil, got %d", *d)
	}
}

func TestTrack_PointCount(t *testing.T) {
	track := &domain.Track{Segments: [][]domain.TrackPoint{
		{pt(0, 0), pt(0, 1)},
		nil,
		{pt(1, 1)},
	}}
	if got := track.PointCount(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestTrack_Bounds(t *testing.T) {
	track := &domain.Track{Segments: [][]domain.TrackPoint{
		{pt(43.26, -2.94), pt(43.28, -2.91)},
		{pt(43.25, -2.95)},
	}}

	area, ok := track.Bounds()
	if !ok {
		t.Fatal("expected bounds for a non-empty track")
	}

	want := domain.MapArea{MinLat: 43.25, MinLon: -2.95, MaxLat: 43.28, MaxLon: -2.91}
	if area != want {
		t.Errorf("expected %+v, got %+v", want, area)
	}
}

func TestTrack_Bounds_Empty(t *testing.T) {
	track := &domain.Track{Segments: [][]domain.TrackPoint{nil}}
	if _, ok := track.Bounds(); ok {
		t.Error("expected no bounds for a track without points")
	}
}

func TestTrack_StartTime(t *testing.T) {
	track := &domain.Track{Segments: [][]domain.TrackPoint{
		{ptAt(0, 0, 9000), pt(0, 1)},
		{ptAt(0, 2, 3000)},
	}}

	ts := track.StartTime()
	if ts == nil {
		t.Fatal("expected a start time, got nil")
	}
	if *ts != 3000 {
		t.Errorf("expected 3000, got %d", *ts)
	}

	empty := &domain.Track{Segments: [][]domain.TrackPoint{{pt(0, 0)}}}
	if ts := empty.StartTime(); ts != nil {
		t.Errorf("expected nil, got %d", *ts)
	}
}
