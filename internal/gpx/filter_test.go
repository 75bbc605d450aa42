package gpx

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gpxgo "github.com/tkrajina/gpxgo/gpx"
)

const docHead = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <metadata>
    <time>2023-01-01T09:00:00Z</time>
  </metadata>
  <trk>
    <name>Test Track</name>
    <trkseg>`

const docTail = "\n    </trkseg>\n  </trk>\n</gpx>\n"

func trkpt(lat, lon, ts string) string {
	return `<trkpt lat="` + lat + `" lon="` + lon + `">
        <ele>100</ele>
        <time>` + ts + `</time>
        <extensions>
          <ns3:TrackPointExtension xmlns:ns3="http://www.garmin.com/xmlschemas/TrackPointExtension/v1">
            <ns3:hr>150</ns3:hr>
          </ns3:TrackPointExtension>
        </extensions>
      </trkpt>`
}

// buildDoc lays points out the way most GPS devices indent them.
func buildDoc(points ...string) string {
	var sb strings.Builder
	sb.WriteString(docHead)
	for _, p := range points {
		sb.WriteString("\n      ")
		sb.WriteString(p)
	}
	sb.WriteString(docTail)
	return sb.String()
}

var (
	pt1 = trkpt("37.7749", "-122.4194", "2023-01-01T10:00:00Z")
	pt2 = trkpt("37.7750", "-122.4195", "2023-01-01T10:00:02Z")
	pt3 = trkpt("37.7751", "-122.4196", "2023-01-01T10:00:10Z")
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func runFilter(t *testing.T, doc string, win Window) (string, FilterStats) {
	t.Helper()
	var out bytes.Buffer
	stats, err := Filter(&out, []byte(doc), win)
	require.NoError(t, err)
	return out.String(), stats
}

func pointCount(t *testing.T, doc string) int {
	t.Helper()
	g, err := gpxgo.ParseBytes([]byte(doc))
	require.NoError(t, err, "output should be valid GPX")
	n := 0
	for _, trk := range g.Tracks {
		for _, seg := range trk.Segments {
			n += len(seg.Points)
		}
	}
	return n
}

func TestFilterSpanKeepsFirstTwo(t *testing.T) {
	doc := buildDoc(pt1, pt2, pt3)
	out, stats := runFilter(t, doc, Span{
		Start: at(t, "2023-01-01T10:00:00Z"),
		End:   at(t, "2023-01-01T10:00:03Z"),
	})

	assert.Equal(t, FilterStats{Points: 3, Kept: 2}, stats)
	assert.Equal(t, 1, stats.Dropped())
	assert.Equal(t, 2, pointCount(t, out))
	assert.Contains(t, out, "10:00:02Z")
	assert.NotContains(t, out, "10:00:10Z")
}

func TestFilterUntilIsInclusive(t *testing.T) {
	doc := buildDoc(pt1, pt2, pt3)

	out, stats := runFilter(t, doc, Until{Threshold: at(t, "2023-01-01T10:00:05Z")})
	assert.Equal(t, 2, stats.Kept)
	assert.Equal(t, 2, pointCount(t, out))

	out, stats = runFilter(t, doc, Until{Threshold: at(t, "2023-01-01T10:00:02Z")})
	assert.Equal(t, 2, stats.Kept, "point exactly at threshold is kept")
	assert.Contains(t, out, "10:00:02Z")
}

func TestFilterSpanBoundaries(t *testing.T) {
	doc := buildDoc(pt1, pt2, pt3)

	out, stats := runFilter(t, doc, Span{
		Start: at(t, "2023-01-01T10:00:02Z"),
		End:   at(t, "2023-01-01T10:00:10Z"),
	})
	assert.Equal(t, 1, stats.Kept)
	assert.Contains(t, out, "10:00:02Z", "start is inclusive")
	assert.NotContains(t, out, "10:00:10Z", "end is exclusive")
}

func TestFilterEverythingInWindowIsIdentity(t *testing.T) {
	doc := buildDoc(pt1, pt2, pt3)
	out, stats := runFilter(t, doc, Span{
		Start: at(t, "2000-01-01T00:00:00Z"),
		End:   at(t, "2100-01-01T00:00:00Z"),
	})

	assert.Equal(t, 3, stats.Kept)
	if diff := cmp.Diff(doc, out); diff != "" {
		t.Errorf("output differs from input (-want +got):\n%s", diff)
	}
}

func TestFilterNothingInWindowKeepsStructure(t *testing.T) {
	doc := buildDoc(pt1, pt2, pt3)
	out, stats := runFilter(t, doc, Span{
		Start: at(t, "2030-01-01T00:00:00Z"),
		End:   at(t, "2030-01-02T00:00:00Z"),
	})

	want := docHead + "\n      </trkseg>\n  </trk>\n</gpx>\n"
	assert.Equal(t, 0, stats.Kept)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, pointCount(t, out))
	assert.Contains(t, out, "<time>2023-01-01T09:00:00Z</time>", "metadata time survives")
}

func TestFilterLayoutAfterDrops(t *testing.T) {
	doc := buildDoc(pt1, pt2, pt3)

	t.Run("leading point dropped", func(t *testing.T) {
		out, _ := runFilter(t, doc, Span{
			Start: at(t, "2023-01-01T10:00:01Z"),
			End:   at(t, "2023-01-01T11:00:00Z"),
		})
		if diff := cmp.Diff(buildDoc(pt2, pt3), out); diff != "" {
			t.Errorf("unexpected output (-want +got):\n%s", diff)
		}
	})

	t.Run("trailing point dropped", func(t *testing.T) {
		out, _ := runFilter(t, doc, Span{
			Start: at(t, "2023-01-01T10:00:00Z"),
			End:   at(t, "2023-01-01T10:00:05Z"),
		})
		want := strings.Replace(buildDoc(pt1, pt2), "\n    </trkseg>", "\n      </trkseg>", 1)
		if diff := cmp.Diff(want, out); diff != "" {
			t.Errorf("unexpected output (-want +got):\n%s", diff)
		}
	})
}

func TestFilterBlankSuppression(t *testing.T) {
	win := Span{
		Start: at(t, "2023-01-01T10:00:05Z"),
		End:   at(t, "2023-01-01T11:00:00Z"),
	}

	t.Run("comment ends suppression", func(t *testing.T) {
		doc := docHead + "\n      " + pt1 + "\n      <!-- lap 2 -->\n      " + pt3 + docTail
		out, stats := runFilter(t, doc, win)

		want := docHead + "\n      <!-- lap 2 -->\n      " + pt3 + docTail
		assert.Equal(t, FilterStats{Points: 2, Kept: 1}, stats)
		if diff := cmp.Diff(want, out); diff != "" {
			t.Errorf("unexpected output (-want +got):\n%s", diff)
		}
	})

	t.Run("drop outside a segment keeps whitespace", func(t *testing.T) {
		stray := `<trkpt lat="1" lon="2"><time>2023-01-01T10:00:00Z</time></trkpt>`
		doc := "<gpx>\n  " + stray + "\n  <trk>\n    <trkseg>\n      " + pt3 + "\n    </trkseg>\n  </trk>\n</gpx>\n"
		out, stats := runFilter(t, doc, win)

		want := strings.Replace(doc, stray, "", 1)
		assert.Equal(t, FilterStats{Points: 2, Kept: 1}, stats)
		if diff := cmp.Diff(want, out); diff != "" {
			t.Errorf("unexpected output (-want +got):\n%s", diff)
		}
	})
}

func TestFilterAcceptsISO8601Forms(t *testing.T) {
	doc := buildDoc(
		trkpt("37.7749", "-122.4194", "2023-01-01T10:00Z"),
		trkpt("37.7750", "-122.4195", "20230101T100002Z"),
	)
	out, stats := runFilter(t, doc, Span{
		Start: at(t, "2023-01-01T10:00:00Z"),
		End:   at(t, "2023-01-01T10:00:03Z"),
	})

	assert.Equal(t, FilterStats{Points: 2, Kept: 2}, stats)
	assert.Equal(t, doc, out)
}

func TestFilterDropsTimelessPoints(t *testing.T) {
	timeless := `<trkpt lat="37.7752" lon="-122.4197">
        <ele>103</ele>
      </trkpt>`
	badTime := trkpt("37.7753", "-122.4198", "not-a-time")
	selfClosing := `<trkpt lat="37.7754" lon="-122.4199"/>`

	doc := buildDoc(pt1, timeless, badTime, selfClosing, pt2)
	out, stats := runFilter(t, doc, Span{
		Start: at(t, "2000-01-01T00:00:00Z"),
		End:   at(t, "2100-01-01T00:00:00Z"),
	})

	assert.Equal(t, FilterStats{Points: 5, Kept: 2}, stats)
	assert.Equal(t, 2, pointCount(t, out))
	assert.NotContains(t, out, "not-a-time")
	assert.NotContains(t, out, "37.7754")
	assert.Equal(t, buildDoc(pt1, pt2), out)
}

func TestFilterPreservesPointContentVerbatim(t *testing.T) {
	odd := `<trkpt lat="1.5" lon='2.5'><!-- keep me --><time>
          2023-01-01T10:00:01+02:00
        </time><extensions><![CDATA[raw & <data>]]></extensions></trkpt>`
	doc := buildDoc(odd)

	out, stats := runFilter(t, doc, Until{Threshold: at(t, "2023-01-01T08:00:01Z")})
	assert.Equal(t, 1, stats.Kept)
	assert.Equal(t, doc, out)

	out, stats = runFilter(t, doc, Until{Threshold: at(t, "2023-01-01T08:00:00Z")})
	assert.Equal(t, 0, stats.Kept, "offset +02:00 is honoured")
	assert.NotContains(t, out, "keep me", "comments inside a dropped point go with it")
}

func TestFilterMalformedXML(t *testing.T) {
	doc := buildDoc(pt1) + "<unclosed"
	var out bytes.Buffer
	_, err := Filter(&out, []byte(strings.Replace(doc, "</trk>", "</trak>", 1)), Until{Threshold: time.Now()})
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Greater(t, perr.Offset, int64(0))
	assert.Contains(t, err.Error(), "malformed XML at byte offset")
}

func TestFilterEmptyInput(t *testing.T) {
	out, stats := runFilter(t, "", Until{Threshold: time.Now()})
	assert.Empty(t, out)
	assert.Zero(t, stats.Points)
}

func TestWindowString(t *testing.T) {
	start := at(t, "2023-01-01T10:00:00Z")
	end := at(t, "2023-01-01T10:00:03Z")
	assert.Equal(t, "[2023-01-01T10:00:00Z, 2023-01-01T10:00:03Z)", Span{Start: start, End: end}.String())
	assert.Equal(t, "(-inf, 2023-01-01T10:00:03Z]", Until{Threshold: end}.String())
}
