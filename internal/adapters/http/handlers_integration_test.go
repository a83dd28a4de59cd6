//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	handler "github.com/samirrijal/bizibide/internal/adapters/http"
	"github.com/samirrijal/bizibide/internal/adapters/postgres"
	"github.com/samirrijal/bizibide/internal/core/domain"
	"github.com/samirrijal/bizibide/internal/core/usecases"
	"github.com/samirrijal/bizibide/internal/pkg/config"
)

// setupTestDB connects to the test database and returns a clean DB instance.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("bizibide-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	db := &postgres.DB{Pool: pool}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return db
}

// setupTestDeps creates dependencies with a real DB and repos, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *handler.Dependencies {
	rideRepo := postgres.NewRideRepo(db)

	return &handler.Dependencies{
		Rides:          usecases.NewRideService(rideRepo, nil, nil),
		Elevation:      usecases.NewElevationService(rideRepo, nil, nil),
		DB:             db,
		MaxUploadBytes: 4 * 1024 * 1024,
	}
}

const integrationTrackDocument = `<gpx>
  <metadata><time>2021-03-01T10:00:00Z</time></metadata>
  <trk>
    <name>Integration Loop</name>
    <trkseg>
      <trkpt lat="43.2630" lon="-2.9350"><ele>12</ele><time>2021-03-01T10:00:00Z</time></trkpt>
      <trkpt lat="43.2700" lon="-2.9300"><ele>18</ele><time>2021-03-01T10:10:00Z</time></trkpt>
      <trkpt lat="43.2750" lon="-2.9250"><time>2021-03-01T10:20:00Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

// importTestRide posts a track document through the full stack and returns
// the stored ride.
func importTestRide(t *testing.T, app *fiber.App) domain.Ride {
	t.Helper()

	req := httptest.NewRequest("POST", "/v1/rides", strings.NewReader(integrationTrackDocument))
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("import request: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var ride domain.Ride
	if err := json.NewDecoder(resp.Body).Decode(&ride); err != nil {
		t.Fatalf("decode ride: %v", err)
	}
	return ride
}

// TestImportAndFetchRide_Integration round-trips a ride through the real
// database.
func TestImportAndFetchRide_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	ride := importTestRide(t, app)
	defer db.Pool.Exec(context.Background(), `DELETE FROM rides WHERE id = $1`, ride.ID)

	if ride.ID == "" {
		t.Fatal("expected a generated ride ID")
	}
	if ride.PointCount != 3 || ride.SegmentCount != 1 {
		t.Errorf("wrong counts: %d points, %d segments", ride.PointCount, ride.SegmentCount)
	}

	// Fetch it back
	req := httptest.NewRequest("GET", "/v1/rides/"+ride.ID, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var fetched domain.Ride
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if fetched.Name != "Integration Loop" {
		t.Errorf("expected Integration Loop, got %q", fetched.Name)
	}
	if fetched.DistanceM <= 0 {
		t.Errorf("expected a positive stored distance, got %f", fetched.DistanceM)
	}
}

// TestRideGeoJSON_Integration verifies the stored track survives the round
// trip into GeoJSON.
func TestRideGeoJSON_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	ride := importTestRide(t, app)
	defer db.Pool.Exec(context.Background(), `DELETE FROM rides WHERE id = $1`, ride.ID)

	req := httptest.NewRequest("GET", "/v1/rides/"+ride.ID+"/geojson", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("geojson request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var feature struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feature); err != nil {
		t.Fatalf("decode geojson: %v", err)
	}
	if feature.Geometry.Type != "MultiLineString" {
		t.Errorf("expected MultiLineString, got %q", feature.Geometry.Type)
	}
	if len(feature.Geometry.Coordinates) != 1 || len(feature.Geometry.Coordinates[0]) != 3 {
		t.Errorf("wrong geometry shape: %v", feature.Geometry.Coordinates)
	}
}

// TestRidesInArea_Integration exercises the bounding-box query against the
// real database.
func TestRidesInArea_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	ride := importTestRide(t, app)
	defer db.Pool.Exec(context.Background(), `DELETE FROM rides WHERE id = $1`, ride.ID)

	// An area covering Bilbao must include the imported ride
	req := httptest.NewRequest("GET", "/v1/rides/area?min_lat=43.2&min_lon=-3.0&max_lat=43.3&max_lon=-2.9", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("area request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var rides []domain.Ride
	if err := json.NewDecoder(resp.Body).Decode(&rides); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	found := false
	for _, r := range rides {
		if r.ID == ride.ID {
			found = true
		}
	}
	if !found {
		t.Error("expected the imported ride in the area result")
	}

	// A disjoint area must not
	req = httptest.NewRequest("GET", "/v1/rides/area?min_lat=10&min_lon=10&max_lat=11&max_lon=11", nil)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("area request: %v", err)
	}
	rides = nil
	json.NewDecoder(resp.Body).Decode(&rides)
	for _, r := range rides {
		if r.ID == ride.ID {
			t.Error("imported ride must not match a disjoint area")
		}
	}
}
