package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/bizibide/internal/core/domain"
)

// RideRepo implements ports.RideRepository with pgx.
type RideRepo struct {
	db *DB
}

// NewRideRepo creates a new RideRepo.
func NewRideRepo(db *DB) *RideRepo {
	return &RideRepo{db: db}
}

// Insert stores the ride row and its track points in one transaction. The
// generated ID and creation time are written back into ride.
func (r *RideRepo) Insert(ctx context.Context, ride *domain.Ride, track *domain.Track) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO rides (name, started_at, distance_m, duration_ms, segment_count, point_count,
		                   min_lat, min_lon, max_lat, max_lon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, nullString(ride.Name), ride.StartedAt, ride.DistanceM, ride.DurationMs,
		ride.SegmentCount, ride.PointCount,
		ride.Bounds.MinLat, ride.Bounds.MinLon, ride.Bounds.MaxLat, ride.Bounds.MaxLon,
	).Scan(&ride.ID, &ride.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}

	batch := &pgx.Batch{}
	n := 0
	for segIdx, seg := range track.Segments {
		for seq, p := range seg {
			batch.Queue(`
				INSERT INTO ride_points (ride_id, segment, seq, lat, lon, elevation, recorded_at_ms)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, ride.ID, segIdx, seq, p.Lat, p.Lon, p.Elevation, p.Timestamp)
			n++
		}
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert points: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

const rideColumns = `
	id, COALESCE(name, ''), started_at, distance_m, duration_ms, segment_count, point_count,
	min_lat, min_lon, max_lat, max_lon, created_at`

func scanRide(row pgx.Row) (*domain.Ride, error) {
	var ride domain.Ride
	err := row.Scan(
		&ride.ID, &ride.Name, &ride.StartedAt, &ride.DistanceM, &ride.DurationMs,
		&ride.SegmentCount, &ride.PointCount,
		&ride.Bounds.MinLat, &ride.Bounds.MinLon, &ride.Bounds.MaxLat, &ride.Bounds.MaxLon,
		&ride.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

// GetByID returns a ride by UUID.
func (r *RideRepo) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	return scanRide(r.db.Pool.QueryRow(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE id = $1`, id))
}

// List returns rides newest first, plus the total row count.
func (r *RideRepo) List(ctx context.Context, limit, offset int) ([]domain.Ride, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM rides`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+rideColumns+`
		FROM rides
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rides []domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, 0, err
		}
		rides = append(rides, *ride)
	}
	return rides, total, rows.Err()
}

// ListInArea returns rides whose stored bounding box intersects the area.
func (r *RideRepo) ListInArea(ctx context.Context, area domain.MapArea, limit int) ([]domain.Ride, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+rideColumns+`
		FROM rides
		WHERE min_lat <= $3 AND max_lat >= $1
		  AND min_lon <= $4 AND max_lon >= $2
		ORDER BY created_at DESC
		LIMIT $5
	`, area.MinLat, area.MinLon, area.MaxLat, area.MaxLon, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, *ride)
	}
	return rides, rows.Err()
}

// Track reloads the full track of a ride, segments and points in recorded order.
func (r *RideRepo) Track(ctx context.Context, rideID string) (*domain.Track, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT segment, lat, lon, elevation, recorded_at_ms
		FROM ride_points
		WHERE ride_id = $1
		ORDER BY segment, seq
	`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	track := &domain.Track{}
	last := -1
	for rows.Next() {
		var segIdx int
		var p domain.TrackPoint
		if err := rows.Scan(&segIdx, &p.Lat, &p.Lon, &p.Elevation, &p.Timestamp); err != nil {
			return nil, err
		}
		for last < segIdx {
			track.Segments = append(track.Segments, nil)
			last++
		}
		track.Segments[segIdx] = append(track.Segments[segIdx], p)
	}
	return track, rows.Err()
}

// Delete removes a ride; points go with it via ON DELETE CASCADE.
func (r *RideRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM rides WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
