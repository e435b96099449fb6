package record

import "fmt"

// Kind discriminates the Location variants.
type Kind uint8

const (
	// KindPoint is a single pixel placement.
	KindPoint Kind = iota + 1
	// KindRect is a rectangle placement (moderation overwrite).
	KindRect
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindRect:
		return "rect"
	default:
		return "unknown"
	}
}

// Point is a pixel coordinate.
type Point struct {
	X, Y uint32
}

// Rect is an axis-aligned rectangle given by two corners.
type Rect struct {
	X1, Y1, X2, Y2 uint32
}

// Location is a tagged union of Point and Rect. It is a plain value so
// decoding a record never allocates.
type Location struct {
	kind Kind
	a, b uint32
	c, d uint32
}

// PointLocation returns a Location holding p.
func PointLocation(p Point) Location {
	return Location{kind: KindPoint, a: p.X, b: p.Y}
}

// RectLocation returns a Location holding r.
func RectLocation(r Rect) Location {
	return Location{kind: KindRect, a: r.X1, b: r.Y1, c: r.X2, d: r.Y2}
}

// Kind returns the variant held by l.
func (l Location) Kind() Kind { return l.kind }

// Point returns the point when l is a Point.
func (l Location) Point() (Point, bool) {
	if l.kind != KindPoint {
		return Point{}, false
	}
	return Point{X: l.a, Y: l.b}, true
}

// Rect returns the rectangle when l is a Rect.
func (l Location) Rect() (Rect, bool) {
	if l.kind != KindRect {
		return Rect{}, false
	}
	return Rect{X1: l.a, Y1: l.b, X2: l.c, Y2: l.d}, true
}

func (l Location) String() string {
	switch l.kind {
	case KindPoint:
		return fmt.Sprintf("Point(%d, %d)", l.a, l.b)
	case KindRect:
		return fmt.Sprintf("Rect(%d, %d, %d, %d)", l.a, l.b, l.c, l.d)
	default:
		return "Location(invalid)"
	}
}

// parseUint32 parses a non-empty run of ASCII digits into a uint32.
func parseUint32(b []byte) (uint32, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
		if n > 1<<32-1 {
			return 0, false
		}
	}
	return uint32(n), true
}
