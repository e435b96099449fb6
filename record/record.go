// Package record decodes a single dataset line into typed fields.
//
// A line has the shape
//
//	<timestamp>,<agent_id>,<colour>,<q><x>,<y><q>
//
// for a pixel placement and
//
//	<timestamp>,<agent_id>,<colour>,<q><x1>,<y1>,<x2>,<y2><q>
//
// for a rectangle, where <q> is a single opaque bracket byte. Decoding
// locates the delimiters once and exposes every field as a view into the
// original line; nothing is copied and nothing is allocated.
package record

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Delimiter counts of the two record shapes.
const (
	PointArity = 4
	RectArity  = 6
)

// Record is a decoded view over one line. It borrows the line and is only
// valid while the line bytes are.
type Record struct {
	line   []byte
	commas [RectArity]int
	n      int
}

// Parse locates the field delimiters of line. It fails when the delimiter
// count is neither PointArity nor RectArity or when the location payload is
// too short to hold its brackets and numbers.
func Parse(line []byte) (Record, error) {
	var r Record
	for i, c := range line {
		if c != ',' {
			continue
		}
		if r.n == RectArity {
			return Record{}, newFormatError(line, "more than %d delimiters", RectArity)
		}
		r.commas[r.n] = i
		r.n++
	}
	if r.n != PointArity && r.n != RectArity {
		return Record{}, newFormatError(line, "%d delimiters, want %d or %d", r.n, PointArity, RectArity)
	}
	// The first number starts after the opening bracket and the last one
	// ends before the closing bracket; both must be non-empty.
	if r.commas[3] < r.commas[2]+3 || r.commas[r.n-1]+2 > len(line)-1 {
		return Record{}, newFormatError(line, "truncated location payload")
	}
	r.line = line
	return r, nil
}

// Arity returns the number of delimiters in the line.
func (r *Record) Arity() int { return r.n }

// Line returns the full line.
func (r *Record) Line() []byte { return r.line }

// TimeRaw returns the timestamp field.
func (r *Record) TimeRaw() []byte { return r.line[:r.commas[0]] }

// AgentID returns the agent identifier field.
func (r *Record) AgentID() []byte { return r.line[r.commas[0]+1 : r.commas[1]] }

// Colour returns the colour key field.
func (r *Record) Colour() []byte { return r.line[r.commas[1]+1 : r.commas[2]] }

// LocationRaw returns the location payload with its outer brackets removed.
func (r *Record) LocationRaw() []byte { return r.line[r.commas[2]+2 : len(r.line)-1] }

// Tail returns the line from the first delimiter onward, i.e. everything
// except the timestamp.
func (r *Record) Tail() []byte { return r.line[r.commas[0]:] }

// Time parses the timestamp field.
func (r *Record) Time() (time.Time, error) {
	t, reason := parseTimestamp(r.TimeRaw())
	if reason != "" {
		return time.Time{}, newFormatError(r.line, "%s", reason)
	}
	return t, nil
}

// Location parses the location payload into a Point or Rect.
func (r *Record) Location() (Location, error) {
	end := len(r.line) - 1
	if r.n == PointArity {
		x, okX := parseUint32(r.line[r.commas[2]+2 : r.commas[3]])
		y, okY := parseUint32(r.line[r.commas[3]+1 : end])
		if !okX || !okY {
			return Location{}, newFormatError(r.line, "non-numeric point coordinate")
		}
		return PointLocation(Point{X: x, Y: y}), nil
	}

	x1, ok1 := parseUint32(r.line[r.commas[2]+2 : r.commas[3]])
	y1, ok2 := parseUint32(r.line[r.commas[3]+1 : r.commas[4]])
	x2, ok3 := parseUint32(r.line[r.commas[4]+1 : r.commas[5]])
	y2, ok4 := parseUint32(r.line[r.commas[5]+1 : end])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Location{}, newFormatError(r.line, "non-numeric rect coordinate")
	}
	return RectLocation(Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}), nil
}

// AgentIs reports whether the record was placed by agent.
func (r *Record) AgentIs(agent []byte) bool {
	return bytes.Equal(r.AgentID(), agent)
}

// String renders the record in debug form. It allocates and is meant for
// printing, not for the hot path.
func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString("Record { time: ")
	fmt.Fprintf(&sb, "%q", r.TimeRaw())
	sb.WriteString(", agent_id: ")
	fmt.Fprintf(&sb, "%q", r.AgentID())
	sb.WriteString(", colour: ")
	fmt.Fprintf(&sb, "%q", r.Colour())
	sb.WriteString(", location: ")
	if loc, err := r.Location(); err == nil {
		sb.WriteString(loc.String())
	} else {
		fmt.Fprintf(&sb, "%q", r.LocationRaw())
	}
	sb.WriteString(" }")
	return sb.String()
}
