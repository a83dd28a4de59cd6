// Package elevation queries an OpenTopoData-compatible elevation API.
package elevation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/samirrijal/bizibide/internal/core/domain"
)

// Provider implements ports.ElevationProvider over HTTP.
type Provider struct {
	baseURL string
	client  *http.Client
}

// New creates a provider for the given API base URL (dataset included),
// e.g. https://api.opentopodata.org/v1/srtm90m.
func New(baseURL string, timeout time.Duration) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Results []struct {
		Elevation *float64 `json:"elevation"`
		Location  struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"results"`
}

// SamplesInArea samples the raster on a regular grid covering area. The four
// decimal-degree bounds are forwarded to the provider as-is; at most limit
// grid points are queried.
func (p *Provider) SamplesInArea(ctx context.Context, area domain.MapArea, limit int) ([]domain.ElevationSample, error) {
	if limit <= 0 {
		limit = 100
	}
	points := gridPoints(area, limit)

	locs := make([]string, len(points))
	for i, pt := range points {
		locs[i] = fmt.Sprintf("%f,%f", pt.Lat, pt.Lon)
	}

	url := p.baseURL + "?locations=" + strings.Join(locs, "|")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevation provider returned %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode elevation response: %w", err)
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("elevation provider: %s", body.Error)
	}

	samples := make([]domain.ElevationSample, 0, len(body.Results))
	for _, r := range body.Results {
		if r.Elevation == nil {
			// ocean or void cell, skip
			continue
		}
		samples = append(samples, domain.ElevationSample{
			Location:   domain.GeoPoint{Lat: r.Location.Lat, Lon: r.Location.Lng},
			ElevationM: *r.Elevation,
		})
	}
	return samples, nil
}

// gridPoints lays a near-square grid of at most limit points over the area,
// bounds included. For a limit below 4 the 2x2 corner grid is truncated so
// the cap still holds.
func gridPoints(area domain.MapArea, limit int) []domain.GeoPoint {
	side := int(math.Sqrt(float64(limit)))
	if side < 2 {
		side = 2
	}

	points := make([]domain.GeoPoint, 0, side*side)
	latStep := (area.MaxLat - area.MinLat) / float64(side-1)
	lonStep := (area.MaxLon - area.MinLon) / float64(side-1)
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			points = append(points, domain.GeoPoint{
				Lat: area.MinLat + float64(i)*latStep,
				Lon: area.MinLon + float64(j)*lonStep,
			})
		}
	}
	if len(points) > limit {
		points = points[:limit]
	}
	return points
}
