package gpx

import (
	"encoding/xml"
	"io"
	"strings"
	"time"
)

// blankMode controls whitespace handling between track points.
type blankMode int

const (
	blankNormal blankMode = iota
	// blankSuppressAfterDrop is entered when a point inside a segment is
	// removed. Whitespace-only text is then skipped until any other token
	// arrives, so removed points do not leave blank lines behind.
	blankSuppressAfterDrop
)

// filterState is the whole state of one Filter pass.
type filterState struct {
	out   io.Writer
	win   Window
	stats FilterStats

	inSegment bool
	blank     blankMode

	inPoint    bool
	pointDepth int
	pointBuf   [][]byte
	inTime     bool
	timeText   strings.Builder
	pointTime  time.Time
	hasTime    bool
}

// Filter copies input to w, dropping every <trkpt> whose time is outside
// win. Points without a parseable time are always dropped. Everything else
// is written byte for byte as it appeared in input.
//
// On error w may already hold a prefix of the document.
func Filter(w io.Writer, input []byte, win Window) (FilterStats, error) {
	s := &filterState{out: w, win: win}
	tz := newTokenizer(input)
	for {
		tok, raw, err := tz.next()
		if err == io.EOF {
			return s.stats, nil
		}
		if err != nil {
			return s.stats, err
		}
		if err := s.step(tok, raw); err != nil {
			return s.stats, err
		}
	}
}

func (s *filterState) step(tok xml.Token, raw []byte) error {
	if s.inPoint {
		return s.stepInPoint(tok, raw)
	}

	switch t := tok.(type) {
	case xml.StartElement:
		switch t.Name.Local {
		case pointTag:
			s.beginPoint(raw)
			return nil
		case segmentTag:
			s.inSegment = true
		}
		s.blank = blankNormal

	case xml.EndElement:
		if t.Name.Local == segmentTag {
			s.inSegment = false
		}
		s.blank = blankNormal

	case xml.CharData:
		if isBlank(raw) {
			if s.blank == blankSuppressAfterDrop {
				return nil
			}
		} else {
			s.blank = blankNormal
		}

	default:
		s.blank = blankNormal
	}
	return s.emit(raw)
}

func (s *filterState) beginPoint(raw []byte) {
	s.inPoint = true
	s.pointDepth = 1
	s.pointBuf = append(s.pointBuf[:0], raw)
	s.inTime = false
	s.hasTime = false
	s.pointTime = time.Time{}
	s.blank = blankNormal
}

func (s *filterState) stepInPoint(tok xml.Token, raw []byte) error {
	switch t := tok.(type) {
	case xml.StartElement:
		s.pointDepth++
		if t.Name.Local == timeTag {
			s.inTime = true
			s.timeText.Reset()
		}

	case xml.EndElement:
		s.pointDepth--
		if s.pointDepth == 0 {
			return s.endPoint(raw)
		}
		if s.inTime && t.Name.Local == timeTag {
			s.inTime = false
			if ts, ok := parseTime(s.timeText.String()); ok {
				s.pointTime, s.hasTime = ts, true
			}
		}

	case xml.CharData:
		if s.inTime {
			s.timeText.Write(t)
		}
	}

	s.pointBuf = append(s.pointBuf, raw)
	return nil
}

func (s *filterState) endPoint(raw []byte) error {
	s.inPoint = false
	s.inTime = false
	s.stats.Points++

	if !s.hasTime || !s.win.Contains(s.pointTime) {
		if s.inSegment {
			s.blank = blankSuppressAfterDrop
		}
		return nil
	}

	s.stats.Kept++
	for _, b := range s.pointBuf {
		if err := s.emit(b); err != nil {
			return err
		}
	}
	return s.emit(raw)
}

func (s *filterState) emit(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := s.out.Write(b)
	return err
}

// isBlank reports whether raw markup is only XML whitespace.
func isBlank(raw []byte) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r', '\f':
		default:
			return false
		}
	}
	return true
}
