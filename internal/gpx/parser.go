// Package gpx parses recorded-ride track files into domain.Track values.
//
// The parser is deliberately forgiving: a ride recorded over several hours
// should never be lost to one corrupt fix, so malformed points and fields are
// dropped with a diagnostic while parsing continues, and a stream that ends
// mid-document yields whatever was accumulated up to the cut.
package gpx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/bizibide/internal/core/domain"
	"github.com/samirrijal/bizibide/internal/pkg/metrics"
)

// ArchiveEntryName is the fixed entry a zipped track archive must contain.
const ArchiveEntryName = "track.gpx"

// timeLayout is the one accepted date-time pattern, always read as UTC.
const timeLayout = "2006-01-02T15:04:05Z"

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// errTruncated unwinds every open element after a premature end of stream.
// It never escapes Parse: truncation is recoverable and keeps parsed data.
var errTruncated = errors.New("gpx: truncated document")

// Result holds everything a parse produced. Any field may be absent when the
// document lacks the corresponding element.
type Result struct {
	Track *domain.Track
	Name  *string
	Time  *int64 // recording time, epoch millis UTC

	// DroppedPoints and DroppedFields count recoverable parse failures:
	// points discarded for a bad coordinate, and elevation/time fields
	// discarded while their point was kept.
	DroppedPoints int
	DroppedFields int
}

// Parse consumes a single track-file document from r and returns the parsed
// result. When the stream starts with a ZIP archive the document is read from
// the fixed ArchiveEntryName entry; a missing entry or corrupt archive is
// fatal, as is any I/O failure on r itself.
//
// ctx is checked once per track point so a large parse can be aborted
// promptly; on cancellation no partial result is returned.
func Parse(ctx context.Context, r io.Reader) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.ParseDuration.Observe(time.Since(start).Seconds())
	}()

	doc, err := openDocument(r)
	if err != nil {
		return nil, err
	}

	p := &parser{dec: xml.NewDecoder(doc)}
	if err := p.run(ctx); err != nil {
		return nil, err
	}

	metrics.PointsDropped.Add(float64(p.res.DroppedPoints))
	metrics.FieldsDropped.Add(float64(p.res.DroppedFields))
	return &p.res, nil
}

// openDocument unwraps the optional ZIP container around the track document.
func openDocument(r io.Reader) (io.Reader, error) {
	head := make([]byte, len(zipMagic))
	n, err := io.ReadFull(r, head)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// shorter than the magic: pass through as a bare document
			return bytes.NewReader(head[:n]), nil
		}
		return nil, fmt.Errorf("read stream: %w", err)
	}

	if !bytes.Equal(head, zipMagic) {
		return io.MultiReader(bytes.NewReader(head), r), nil
	}

	body, err := io.ReadAll(io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name == ArchiveEntryName {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open archive entry %s: %w", ArchiveEntryName, err)
			}
			// the archive lives in memory, no Close bookkeeping needed
			return rc, nil
		}
	}
	return nil, fmt.Errorf("entry %s not found in archive", ArchiveEntryName)
}

type parser struct {
	dec   *xml.Decoder
	res   Result
	track domain.Track
	seen  bool // a <trk> element was encountered
}

func (p *parser) run(ctx context.Context) error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if terr := p.finish(err); terr != nil {
				return terr
			}
			return nil
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "gpx" {
			if err := p.parseRoot(ctx); err != nil {
				if terr := p.finish(err); terr != nil {
					return terr
				}
			}
			break
		}
	}
	if p.seen {
		p.res.Track = &p.track
	}
	return nil
}

// finish classifies an error from the token stream: end of input and XML
// syntax breakage are truncation (keep data), context errors and real I/O
// failures propagate.
func (p *parser) finish(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, errTruncated), isTruncation(err):
		slog.Warn("track document truncated, keeping parsed data",
			"segments", len(p.track.Segments), "points", p.track.PointCount())
		if p.seen {
			p.res.Track = &p.track
		}
		return nil
	default:
		var syntax *xml.SyntaxError
		if errors.As(err, &syntax) {
			slog.Warn("track document malformed past this point, keeping parsed data",
				"line", syntax.Line, "error", syntax.Msg)
			if p.seen {
				p.res.Track = &p.track
			}
			return nil
		}
		return err
	}
}

// consumeChildren is the one traversal primitive every element shares: it
// reads sibling elements until the enclosing element's end tag, handing each
// start element to handle. Unrecognized children must be skipped by the
// handler via p.skip so extra vocabulary from other tools is ignored.
func (p *parser) consumeChildren(handle func(start xml.StartElement) error) error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if isTruncation(err) {
				return errTruncated
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := handle(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// isTruncation reports whether a decoder error means the stream ended early.
// Inside an open element the decoder does not return io.EOF; it wraps the cut
// in a SyntaxError whose message is "unexpected EOF", so that shape counts as
// truncation too. Any other SyntaxError is genuinely malformed markup.
func isTruncation(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var syntax *xml.SyntaxError
	return errors.As(err, &syntax) && strings.Contains(syntax.Msg, "unexpected EOF")
}

// skip consumes an unrecognized element and its whole subtree.
func (p *parser) skip() error {
	return p.consumeChildren(func(xml.StartElement) error {
		return p.skip()
	})
}

func (p *parser) parseRoot(ctx context.Context) error {
	return p.consumeChildren(func(start xml.StartElement) error {
		switch start.Name.Local {
		case "metadata":
			return p.parseMetadata()
		case "time":
			// non-conformant top-level variant, accepted as a fallback
			return p.parseTime()
		case "trk":
			return p.parseTrk(ctx)
		default:
			return p.skip()
		}
	})
}

func (p *parser) parseMetadata() error {
	return p.consumeChildren(func(start xml.StartElement) error {
		if start.Name.Local == "time" {
			return p.parseTime()
		}
		return p.skip()
	})
}

// parseTime reads a recording-time element; the first one encountered wins.
func (p *parser) parseTime() error {
	text, err := p.text()
	if err != nil {
		return err
	}
	if p.res.Time != nil {
		return nil
	}
	if ts, ok := parseTimestamp(text); ok {
		p.res.Time = &ts
	} else {
		p.res.DroppedFields++
		slog.Warn("unparseable recording time, treating as absent", "value", text)
	}
	return nil
}

func (p *parser) parseTrk(ctx context.Context) error {
	p.seen = true
	return p.consumeChildren(func(start xml.StartElement) error {
		switch start.Name.Local {
		case "name":
			text, err := p.text()
			if err != nil {
				return err
			}
			if p.res.Name == nil {
				p.res.Name = &text
			}
			return nil
		case "trkseg":
			return p.parseTrkseg(ctx)
		default:
			return p.skip()
		}
	})
}

func (p *parser) parseTrkseg(ctx context.Context) error {
	p.track.Segments = append(p.track.Segments, nil)
	idx := len(p.track.Segments) - 1

	return p.consumeChildren(func(start xml.StartElement) error {
		if start.Name.Local != "trkpt" {
			return p.skip()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		pt, ok, err := p.parseTrkpt(start)
		if ok {
			p.track.Segments[idx] = append(p.track.Segments[idx], pt)
		}
		return err
	})
}

// parseTrkpt reads one track point. A point without a valid lat and lon is
// dropped entirely; a bad elevation or per-point time only loses that field.
func (p *parser) parseTrkpt(start xml.StartElement) (domain.TrackPoint, bool, error) {
	var pt domain.TrackPoint

	lat, latErr := attrFloat(start, "lat")
	lon, lonErr := attrFloat(start, "lon")
	valid := latErr == nil && lonErr == nil

	err := p.consumeChildren(func(child xml.StartElement) error {
		switch child.Name.Local {
		case "ele":
			text, err := p.text()
			if err != nil {
				return err
			}
			if ele, perr := strconv.ParseFloat(text, 64); perr == nil {
				pt.Elevation = &ele
			} else {
				p.res.DroppedFields++
				slog.Warn("unparseable elevation, dropping field", "value", text)
			}
			return nil
		case "time":
			text, err := p.text()
			if err != nil {
				return err
			}
			if ts, ok := parseTimestamp(text); ok {
				pt.Timestamp = &ts
			} else {
				p.res.DroppedFields++
				slog.Warn("unparseable point time, dropping field", "value", text)
			}
			return nil
		default:
			return p.skip()
		}
	})
	if err != nil {
		// on truncation a half-read point with valid coordinates is kept
		if errors.Is(err, errTruncated) && valid {
			pt.Lat, pt.Lon = lat, lon
			return pt, true, err
		}
		return pt, false, err
	}

	if !valid {
		p.res.DroppedPoints++
		slog.Warn("track point missing valid coordinates, dropping point",
			"lat_err", latErr, "lon_err", lonErr)
		return pt, false, nil
	}
	pt.Lat, pt.Lon = lat, lon
	return pt, true, nil
}

// text collects the character data of the current element up to its end tag.
func (p *parser) text() (string, error) {
	var buf bytes.Buffer
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if isTruncation(err) {
				return buf.String(), errTruncated
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			if err := p.skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return buf.String(), nil
		}
	}
}

func attrFloat(start xml.StartElement, name string) (float64, error) {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return strconv.ParseFloat(a.Value, 64)
		}
	}
	return 0, fmt.Errorf("attribute %s missing", name)
}

func parseTimestamp(text string) (int64, bool) {
	t, err := time.ParseInLocation(timeLayout, text, time.UTC)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}
