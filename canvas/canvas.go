// Package canvas holds the raster a reconstruction paints into and the
// geometry and colour types around it.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strconv"
	"strings"

	"github.com/pithecene-io/placeback/record"
)

// MaxPixels bounds the size of a canvas window.
const MaxPixels = 1 << 26

// Bounds is the half-open window [X1, X2) x [Y1, Y2) in canvas
// coordinates.
type Bounds struct {
	X1 uint32 `yaml:"x1" json:"x1"`
	Y1 uint32 `yaml:"y1" json:"y1"`
	X2 uint32 `yaml:"x2" json:"x2"`
	Y2 uint32 `yaml:"y2" json:"y2"`
}

// DefaultBounds is the window used when none is configured.
func DefaultBounds() Bounds {
	return Bounds{X1: 448, Y1: 646, X2: 599, Y2: 683}
}

// FullCanvas2022 covers the whole 2022 canvas.
func FullCanvas2022() Bounds {
	return Bounds{X1: 0, Y1: 0, X2: 2000, Y2: 2000}
}

// ParseBounds parses "x1,y1,x2,y2".
func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("bounds %q: want x1,y1,x2,y2", s)
	}
	return BoundsFromStrings(parts)
}

// BoundsFromStrings parses four decimal coordinates x1, y1, x2, y2.
func BoundsFromStrings(parts []string) (Bounds, error) {
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("bounds: want 4 coordinates, got %d", len(parts))
	}
	var v [4]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return Bounds{}, fmt.Errorf("bounds coordinate %q: %w", p, err)
		}
		v[i] = uint32(n)
	}
	b := Bounds{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}
	return b, b.Validate()
}

// Validate checks that the window is non-empty and not oversized.
func (b Bounds) Validate() error {
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return fmt.Errorf("bounds %s are empty", b)
	}
	if uint64(b.Width())*uint64(b.Height()) > MaxPixels {
		return fmt.Errorf("bounds %s exceed %d pixels", b, MaxPixels)
	}
	return nil
}

// Width returns X2 - X1.
func (b Bounds) Width() int { return int(b.X2 - b.X1) }

// Height returns Y2 - Y1.
func (b Bounds) Height() int { return int(b.Y2 - b.Y1) }

// Contains reports whether p lies inside the half-open window.
func (b Bounds) Contains(p record.Point) bool {
	return p.X >= b.X1 && p.X < b.X2 && p.Y >= b.Y1 && p.Y < b.Y2
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%d,%d)x[%d,%d)", b.X1, b.X2, b.Y1, b.Y2)
}

// Canvas is an RGB raster over a Bounds window. Pixel (X1, Y1) maps to
// the top-left of the image.
type Canvas struct {
	bounds Bounds
	img    *image.NRGBA
}

// New allocates a canvas filled with background.
func New(b Bounds, background RGB) (*Canvas, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, b.Width(), b.Height()))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = background.R
		img.Pix[i+1] = background.G
		img.Pix[i+2] = background.B
		img.Pix[i+3] = 0xff
	}
	return &Canvas{bounds: b, img: img}, nil
}

// Bounds returns the canvas window.
func (c *Canvas) Bounds() Bounds { return c.bounds }

// Set paints p. Points outside the window are ignored.
func (c *Canvas) Set(p record.Point, col RGB) {
	if !c.bounds.Contains(p) {
		return
	}
	i := c.offset(p)
	c.img.Pix[i] = col.R
	c.img.Pix[i+1] = col.G
	c.img.Pix[i+2] = col.B
}

// At returns the colour at p. Points outside the window read as black.
func (c *Canvas) At(p record.Point) RGB {
	if !c.bounds.Contains(p) {
		return RGB{}
	}
	i := c.offset(p)
	return RGB{R: c.img.Pix[i], G: c.img.Pix[i+1], B: c.img.Pix[i+2]}
}

func (c *Canvas) offset(p record.Point) int {
	return c.img.PixOffset(int(p.X-c.bounds.X1), int(p.Y-c.bounds.Y1))
}

// EncodePNG writes the current raster as a PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if c == nil {
		return errors.New("canvas is nil")
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, c.img)
}
