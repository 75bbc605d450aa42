package gpx

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	segmentTag = "trkseg"
	pointTag   = "trkpt"
	timeTag    = "time"
)

// timeLayouts are tried in order when parsing <time> text. They cover the
// ISO-8601 extended and basic formats, with or without seconds, and the
// three ways of writing a zone offset.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04Z07",
	"20060102T150405.999999999Z0700",
	"20060102T150405.999999999Z07",
	"20060102T1504Z0700",
	"20060102T1504Z07",
}

// parseTime parses an ISO-8601 timestamp carrying a zone offset.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// tokenizer pairs every decoded token with the input bytes it came from,
// so callers can re-emit the document without re-encoding it.
type tokenizer struct {
	input []byte
	dec   *xml.Decoder
}

func newTokenizer(input []byte) *tokenizer {
	// bytes.Reader is an io.ByteReader, so the decoder reads it directly and
	// InputOffset stays aligned with input.
	return &tokenizer{
		input: input,
		dec:   xml.NewDecoder(bytes.NewReader(input)),
	}
}

// next returns io.EOF once the document is exhausted. Any other error is a
// *ParseError.
func (t *tokenizer) next() (xml.Token, []byte, error) {
	start := t.dec.InputOffset()
	tok, err := t.dec.Token()
	if err == io.EOF {
		return nil, nil, io.EOF
	}
	if err != nil {
		return nil, nil, &ParseError{Offset: t.dec.InputOffset(), Err: err}
	}
	return tok, t.input[start:t.dec.InputOffset()], nil
}

// candidate is whatever could be read from one <trkpt> element.
type candidate struct {
	lat, lon       float64
	hasLat, hasLon bool
	time           time.Time
	hasTime        bool
}

func (c candidate) complete() bool {
	return c.hasLat && c.hasLon && c.hasTime
}

func attrFloat(start xml.StartElement, name string) (float64, bool) {
	for _, attr := range start.Attr {
		if attr.Name.Space != "" || attr.Name.Local != name {
			continue
		}
		v, err := strconv.ParseFloat(attr.Value, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// scanPoints walks the document once and calls fn for every <trkpt> when
// its closing tag is reached. A <trkpt> nested inside another one is plain
// content of the outer point, as in Filter.
func scanPoints(input []byte, fn func(candidate)) error {
	tz := newTokenizer(input)

	var (
		depth  int
		inTime bool
		cur    candidate
		text   strings.Builder
	)

	for {
		tok, _, err := tz.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if t.Name.Local == pointTag {
					depth = 1
					inTime = false
					cur = candidate{}
					cur.lat, cur.hasLat = attrFloat(t, "lat")
					cur.lon, cur.hasLon = attrFloat(t, "lon")
				}
				continue
			}
			depth++
			if t.Name.Local == timeTag {
				inTime = true
				text.Reset()
			}

		case xml.EndElement:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				inTime = false
				fn(cur)
				continue
			}
			if inTime && t.Name.Local == timeTag {
				inTime = false
				if ts, ok := parseTime(text.String()); ok {
					cur.time, cur.hasTime = ts, true
				}
			}

		case xml.CharData:
			if inTime {
				text.Write(t)
			}
		}
	}
}

// Extract returns every track point that has lat, lon and a parseable time,
// in document order. Incomplete points are skipped.
func Extract(input []byte) ([]TrackPoint, error) {
	var points []TrackPoint
	err := scanPoints(input, func(c candidate) {
		if c.complete() {
			points = append(points, TrackPoint{Lat: c.lat, Lon: c.lon, Time: c.time})
		}
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// MinTime returns the earliest parseable track point time.
// ok is false when no track point carries one.
func MinTime(input []byte) (earliest time.Time, ok bool, err error) {
	err = scanPoints(input, func(c candidate) {
		if c.hasTime && (!ok || c.time.Before(earliest)) {
			earliest, ok = c.time, true
		}
	})
	if err != nil {
		return time.Time{}, false, err
	}
	return earliest, ok, nil
}
