package http

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/bizibide/internal/core/domain"
	"github.com/samirrijal/bizibide/internal/core/usecases"
)

// ImportRideHandler accepts a track file (GPX, optionally zipped) as the
// request body, imports it and returns the stored ride.
func ImportRideHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if len(body) == 0 {
			return errBadRequest(c, "request body must contain a track file")
		}
		if deps.MaxUploadBytes > 0 && len(body) > deps.MaxUploadBytes {
			return errTooLarge(c, "track file exceeds upload limit")
		}

		ride, err := deps.Rides.Import(c.Context(), bytes.NewReader(body))
		if err != nil {
			if errors.Is(err, usecases.ErrEmptyTrack) {
				return errUnprocessable(c, "track file contains no usable points")
			}
			if c.Context().Err() != nil {
				// client went away mid-parse, nothing to report
				return nil
			}
			return errBadRequest(c, err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(ride)
	}
}

// ListRidesHandler returns stored rides, newest first, paginated.
func ListRidesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)

		rides, total, err := deps.Rides.List(c.Context(), limit, offset)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: rides, Pagination: pg})
	}
}

// RidesInAreaHandler returns rides whose bounding box intersects the given
// map area. All four bounds are required decimal degrees.
func RidesInAreaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		area := domain.MapArea{
			MinLat: c.QueryFloat("min_lat", 91),
			MinLon: c.QueryFloat("min_lon", 181),
			MaxLat: c.QueryFloat("max_lat", -91),
			MaxLon: c.QueryFloat("max_lon", -181),
		}
		if area.MinLat > 90 || area.MinLon > 180 || area.MaxLat < -90 || area.MaxLon < -180 {
			return errBadRequest(c, "min_lat, min_lon, max_lat and max_lon are required")
		}
		if area.MinLat > area.MaxLat || area.MinLon > area.MaxLon {
			return errBadRequest(c, "min bounds must not exceed max bounds")
		}
		limit := c.QueryInt("limit", 50)

		rides, err := deps.Rides.ListInArea(c.Context(), area, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(rides)
	}
}

// GetRideHandler returns a single ride by ID.
func GetRideHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "ride id is required")
		}
		ride, err := deps.Rides.Get(c.Context(), id)
		if err != nil {
			return errNotFound(c, "ride not found")
		}
		return c.JSON(ride)
	}
}

// RideGeoJSONHandler returns a ride's track as a GeoJSON Feature.
func RideGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "ride id is required")
		}
		data, err := deps.Rides.GeoJSON(c.Context(), id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errNotFound(c, "ride not found")
			}
			return errInternal(c, err.Error())
		}
		c.Set("Content-Type", "application/geo+json")
		c.Set("Cache-Control", "public, max-age=3600")
		return c.Send(data)
	}
}

// RideElevationHandler returns elevation samples covering the ride's area.
func RideElevationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "ride id is required")
		}
		limit := c.QueryInt("limit", 100)

		samples, err := deps.Elevation.ProfileForRide(c.Context(), id, limit)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errNotFound(c, "ride not found")
			}
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(samples)
	}
}

// DeleteRideHandler removes a ride and its points.
func DeleteRideHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "ride id is required")
		}
		if err := deps.Rides.Delete(c.Context(), id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errNotFound(c, "ride not found")
			}
			return errInternal(c, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ServiceStats holds aggregate statistics about the stored rides.
type ServiceStats struct {
	Rides          int     `json:"rides"`
	Points         int     `json:"points"`
	TotalDistanceM float64 `json:"total_distance_m"`
	LastImport     string  `json:"last_import,omitempty"`
}

// StatsHandler returns row counts and totals from the ride tables.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats ServiceStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM rides),
				(SELECT count(*) FROM ride_points),
				COALESCE((SELECT sum(distance_m) FROM rides), 0),
				COALESCE((SELECT max(created_at)::text FROM rides), '')
		`)
		if err := row.Scan(&stats.Rides, &stats.Points, &stats.TotalDistanceM, &stats.LastImport); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}
