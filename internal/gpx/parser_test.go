package gpx_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/bizibide/internal/gpx"
)

const fullDocument = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
  <metadata>
    <time>2021-03-01T10:00:00Z</time>
  </metadata>
  <trk>
    <name>Morning Ride</name>
    <trkseg>
      <trkpt lat="43.2630" lon="-2.9350">
        <ele>12.5</ele>
        <time>2021-03-01T10:00:00Z</time>
      </trkpt>
      <trkpt lat="43.2640" lon="-2.9340">
        <ele>13.0</ele>
        <time>2021-03-01T10:00:30Z</time>
      </trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="43.2700" lon="-2.9300">
        <time>2021-03-01T10:05:00Z</time>
      </trkpt>
    </trkseg>
  </trk>
</gpx>`

func parseString(t *testing.T, doc string) *gpx.Result {
	t.Helper()
	res, err := gpx.Parse(context.Background(), strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestParse_FullDocument(t *testing.T) {
	res := parseString(t, fullDocument)

	if res.Track == nil {
		t.Fatal("expected a track")
	}
	if len(res.Track.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Track.Segments))
	}
	if got := res.Track.PointCount(); got != 3 {
		t.Fatalf("expected 3 points, got %d", got)
	}

	if res.Name == nil || *res.Name != "Morning Ride" {
		t.Errorf("expected track name Morning Ride, got %v", res.Name)
	}

	wantTime := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	if res.Time == nil || *res.Time != wantTime {
		t.Errorf("expected recording time %d, got %v", wantTime, res.Time)
	}

	first := res.Track.Segments[0][0]
	if first.Lat != 43.2630 || first.Lon != -2.9350 {
		t.Errorf("first point at wrong location: %+v", first.GeoPoint)
	}
	if first.Elevation == nil || *first.Elevation != 12.5 {
		t.Errorf("expected elevation 12.5, got %v", first.Elevation)
	}
	if first.Timestamp == nil || *first.Timestamp != wantTime {
		t.Errorf("expected timestamp %d, got %v", wantTime, first.Timestamp)
	}

	third := res.Track.Segments[1][0]
	if third.Elevation != nil {
		t.Errorf("expected no elevation on third point, got %v", *third.Elevation)
	}

	if res.DroppedPoints != 0 || res.DroppedFields != 0 {
		t.Errorf("expected clean parse, dropped %d points / %d fields",
			res.DroppedPoints, res.DroppedFields)
	}
}

func TestParse_LegacyTopLevelTime(t *testing.T) {
	doc := `<gpx>
  <time>2021-03-01T10:00:00Z</time>
  <trk><trkseg><trkpt lat="1" lon="2"/></trkseg></trk>
</gpx>`

	res := parseString(t, doc)
	want := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	if res.Time == nil || *res.Time != want {
		t.Errorf("expected time %d, got %v", want, res.Time)
	}
}

func TestParse_FirstTimeWins(t *testing.T) {
	doc := `<gpx>
  <metadata><time>2021-03-01T10:00:00Z</time></metadata>
  <time>2022-06-15T08:00:00Z</time>
  <trk><trkseg/></trk>
</gpx>`

	res := parseString(t, doc)
	want := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	if res.Time == nil || *res.Time != want {
		t.Errorf("expected the first recording time %d, got %v", want, res.Time)
	}
}

func TestParse_BadCoordinateDropsPoint(t *testing.T) {
	doc := `<gpx><trk><trkseg>
  <trkpt lat="43.1" lon="-2.9"/>
  <trkpt lat="not-a-number" lon="-2.9"/>
  <trkpt lon="-2.9"/>
  <trkpt lat="43.2" lon="-2.8"/>
</trkseg></trk></gpx>`

	res := parseString(t, doc)
	if got := res.Track.PointCount(); got != 2 {
		t.Fatalf("expected 2 surviving points, got %d", got)
	}
	if res.DroppedPoints != 2 {
		t.Errorf("expected 2 dropped points, got %d", res.DroppedPoints)
	}

	seg := res.Track.Segments[0]
	if seg[0].Lat != 43.1 || seg[1].Lat != 43.2 {
		t.Errorf("wrong surviving points: %+v", seg)
	}
}

func TestParse_BadFieldKeepsPoint(t *testing.T) {
	doc := `<gpx><trk><trkseg>
  <trkpt lat="43.1" lon="-2.9">
    <ele>very high</ele>
    <time>yesterday</time>
  </trkpt>
</trkseg></trk></gpx>`

	res := parseString(t, doc)
	if got := res.Track.PointCount(); got != 1 {
		t.Fatalf("expected the point to survive, got %d points", got)
	}
	p := res.Track.Segments[0][0]
	if p.Elevation != nil || p.Timestamp != nil {
		t.Errorf("expected both fields absent, got ele=%v ts=%v", p.Elevation, p.Timestamp)
	}
	if res.DroppedFields != 2 {
		t.Errorf("expected 2 dropped fields, got %d", res.DroppedFields)
	}
	if res.DroppedPoints != 0 {
		t.Errorf("expected no dropped points, got %d", res.DroppedPoints)
	}
}

func TestParse_EmptySegmentCounts(t *testing.T) {
	doc := `<gpx><trk>
  <trkseg/>
  <trkseg><trkpt lat="1" lon="2"/></trkseg>
</trk></gpx>`

	res := parseString(t, doc)
	if len(res.Track.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Track.Segments))
	}
	if len(res.Track.Segments[0]) != 0 {
		t.Errorf("expected first segment empty, got %d points", len(res.Track.Segments[0]))
	}
}

func TestParse_UnknownElementsSkipped(t *testing.T) {
	doc := `<gpx>
  <extensions><vendor><deep><deeper>x</deeper></deep></vendor></extensions>
  <trk>
    <type>cycling</type>
    <trkseg>
      <trkpt lat="1" lon="2"><hdop>3.1</hdop><extensions><speed>4.2</speed></extensions></trkpt>
    </trkseg>
  </trk>
</gpx>`

	res := parseString(t, doc)
	if got := res.Track.PointCount(); got != 1 {
		t.Fatalf("expected 1 point, got %d", got)
	}
}

func TestParse_TruncatedKeepsData(t *testing.T) {
	// Cut mid-document, inside the third point's elevation element.
	cut := strings.Index(fullDocument, "<trkpt lat=\"43.2700\"")
	doc := fullDocument[:cut] + `<trkpt lat="43.2700" lon="-2.9300"><ele>8`

	res := parseString(t, doc)
	if res.Track == nil {
		t.Fatal("expected the accumulated track")
	}
	// Both complete points survive, plus the half-read third with its
	// coordinates but without the cut-off elevation.
	if got := res.Track.PointCount(); got != 3 {
		t.Fatalf("expected 3 points, got %d", got)
	}
	last := res.Track.Segments[1][0]
	if last.Lat != 43.2700 || last.Lon != -2.9300 {
		t.Errorf("half-read point at wrong location: %+v", last.GeoPoint)
	}
	if last.Elevation != nil {
		t.Errorf("expected the cut-off elevation to be absent, got %v", *last.Elevation)
	}
	if res.Name == nil || *res.Name != "Morning Ride" {
		t.Errorf("expected the name to survive truncation, got %v", res.Name)
	}
	// The half-read point was kept, so nothing counts as dropped.
	if res.DroppedPoints != 0 {
		t.Errorf("expected no dropped points on truncation, got %d", res.DroppedPoints)
	}
}

func TestParse_TruncatedBetweenPoints(t *testing.T) {
	// Cut between two points, with the trkseg, trk and gpx tags all open.
	doc := `<gpx><trk><name>Cut Short</name><trkseg>
  <trkpt lat="43.2630" lon="-2.9350"><ele>12.5</ele></trkpt>
  `

	res := parseString(t, doc)
	if res.Track == nil || res.Track.PointCount() != 1 {
		t.Fatalf("expected the completed point to survive, got %+v", res.Track)
	}
	pt := res.Track.Segments[0][0]
	if pt.Elevation == nil || *pt.Elevation != 12.5 {
		t.Errorf("expected elevation 12.5, got %v", pt.Elevation)
	}
	if res.Name == nil || *res.Name != "Cut Short" {
		t.Errorf("expected the name to survive, got %v", res.Name)
	}
	if res.DroppedPoints != 0 || res.DroppedFields != 0 {
		t.Errorf("expected no drops, got %d points %d fields", res.DroppedPoints, res.DroppedFields)
	}
}

func TestParse_MalformedXMLKeepsData(t *testing.T) {
	doc := `<gpx><trk><trkseg>
  <trkpt lat="43.1" lon="-2.9"/>
</trkseg></trk></gpx
garbage after the document broke the stream`

	res := parseString(t, doc)
	if res.Track == nil || res.Track.PointCount() != 1 {
		t.Fatalf("expected the parsed point to survive, got %+v", res.Track)
	}
}

func TestParse_NoTrackElement(t *testing.T) {
	res := parseString(t, `<gpx><metadata><time>2021-03-01T10:00:00Z</time></metadata></gpx>`)
	if res.Track != nil {
		t.Errorf("expected no track, got %+v", res.Track)
	}
	if res.Time == nil {
		t.Error("expected the recording time")
	}
}

func TestParse_EmptyInput(t *testing.T) {
	res := parseString(t, "")
	if res.Track != nil {
		t.Errorf("expected no track, got %+v", res.Track)
	}
}

func TestParse_ZipArchive(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(gpx.ArchiveEntryName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(fullDocument)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	res, err := gpx.Parse(context.Background(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Track == nil || res.Track.PointCount() != 3 {
		t.Fatalf("expected the full track from the archive, got %+v", res.Track)
	}
}

func TestParse_ZipMissingEntry(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("ride.gpx")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(fullDocument)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = gpx.Parse(context.Background(), &buf)
	if err == nil {
		t.Fatal("expected an error for an archive without the track entry")
	}
	if !strings.Contains(err.Error(), gpx.ArchiveEntryName) {
		t.Errorf("error should name the missing entry: %v", err)
	}
}

func TestParse_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := gpx.Parse(ctx, strings.NewReader(fullDocument))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res != nil {
		t.Errorf("expected no partial result, got %+v", res)
	}
}
