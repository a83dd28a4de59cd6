package domain

// TrackPoint is a single recorded GPS fix. Elevation and Timestamp are
// optional: a fix parsed from a file may carry neither.
type TrackPoint struct {
	GeoPoint
	Elevation *float64 `json:"elevation,omitempty"` // meters
	Timestamp *int64   `json:"timestamp,omitempty"` // epoch millis, UTC
}

// Track is an ordered collection of recorded segments, each an unbroken
// chronological run of points. A track is produced once by a completed parse
// and never mutated afterward; aggregates are derived on demand.
type Track struct {
	Segments [][]TrackPoint `json:"segments"`
}

// Distance returns the total recorded distance in meters: the sum, per
// segment, of consecutive point-to-point great-circle distances. Segments are
// independent recording intervals, so no distance is counted between the last
// point of one segment and the first point of the next.
func (t *Track) Distance() float64 {
	var total float64
	for _, seg := range t.Segments {
		for i := 1; i < len(seg); i++ {
			total += seg[i-1].DistanceTo(seg[i].GeoPoint)
		}
	}
	return total
}

// Duration returns the recorded duration in milliseconds: the span between
// the smallest and largest timestamp across all points of all segments.
// It returns nil when no point carries a timestamp.
func (t *Track) Duration() *int64 {
	var minTS, maxTS int64
	found := false
	for _, seg := range t.Segments {
		for _, p := range seg {
			if p.Timestamp == nil {
				continue
			}
			ts := *p.Timestamp
			if !found {
				minTS, maxTS = ts, ts
				found = true
				continue
			}
			if ts < minTS {
				minTS = ts
			}
			if ts > maxTS {
				maxTS = ts
			}
		}
	}
	if !found {
		return nil
	}
	d := maxTS - minTS
	return &d
}

// PointCount returns the number of points across all segments.
func (t *Track) PointCount() int {
	n := 0
	for _, seg := range t.Segments {
		n += len(seg)
	}
	return n
}

// Bounds returns the smallest MapArea covering every point of the track.
// The second return value is false when the track has no points.
func (t *Track) Bounds() (MapArea, bool) {
	var area MapArea
	found := false
	for _, seg := range t.Segments {
		for _, p := range seg {
			if !found {
				area = MapArea{MinLat: p.Lat, MinLon: p.Lon, MaxLat: p.Lat, MaxLon: p.Lon}
				found = true
				continue
			}
			if p.Lat < area.MinLat {
				area.MinLat = p.Lat
			}
			if p.Lat > area.MaxLat {
				area.MaxLat = p.Lat
			}
			if p.Lon < area.MinLon {
				area.MinLon = p.Lon
			}
			if p.Lon > area.MaxLon {
				area.MaxLon = p.Lon
			}
		}
	}
	return area, found
}

// StartTime returns the smallest timestamp across all points in epoch millis,
// or nil when no point carries one.
func (t *Track) StartTime() *int64 {
	var minTS *int64
	for _, seg := range t.Segments {
		for _, p := range seg {
			if p.Timestamp == nil {
				continue
			}
			if minTS == nil || *p.Timestamp < *minTS {
				ts := *p.Timestamp
				minTS = &ts
			}
		}
	}
	return minTS
}
