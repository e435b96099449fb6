package canvas

import (
	"fmt"
	"strings"
)

// RGB is an opaque 24-bit colour.
type RGB struct {
	R, G, B uint8
}

// ParseHex parses "#RRGGBB" (case-insensitive).
func ParseHex(s string) (RGB, error) {
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, fmt.Errorf("colour %q: want #RRGGBB", s)
	}
	var v [3]uint8
	for i := range v {
		hi, ok1 := hexNibble(s[1+2*i])
		lo, ok2 := hexNibble(s[2+2*i])
		if !ok1 || !ok2 {
			return RGB{}, fmt.Errorf("colour %q: invalid hex digit", s)
		}
		v[i] = hi<<4 | lo
	}
	return RGB{R: v[0], G: v[1], B: v[2]}, nil
}

// Hex renders c as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Gray returns the colour with all channels set to v.
func Gray(v uint8) RGB {
	return RGB{R: v, G: v, B: v}
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// Palette maps the colour keys found in records to RGB values. Keys are
// matched exactly as they appear in the data.
type Palette struct {
	colours map[string]RGB
}

// NewPalette builds a palette whose keys are the given hex strings.
func NewPalette(keys []string) (*Palette, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("palette must hold at least one colour")
	}
	p := &Palette{colours: make(map[string]RGB, len(keys))}
	for _, k := range keys {
		c, err := ParseHex(k)
		if err != nil {
			return nil, err
		}
		if _, dup := p.colours[k]; dup {
			return nil, fmt.Errorf("palette lists %s twice", k)
		}
		p.colours[k] = c
	}
	return p, nil
}

// Lookup returns the colour for key. It does not allocate.
func (p *Palette) Lookup(key []byte) (RGB, bool) {
	c, ok := p.colours[string(key)]
	return c, ok
}

// Len returns the number of colours.
func (p *Palette) Len() int { return len(p.colours) }

// Keys2022 is the colour key set of the 2022 canvas, in palette index order.
func Keys2022() []string {
	return []string{
		"#9C6926", "#BE0039", "#00A368", "#00756F", "#FFFFFF", "#94B3FF", "#493AC1", "#009EAA",
		"#D4D7D9", "#FFB470", "#7EED56", "#51E9F4", "#FF4500", "#6A5CFF", "#FFF8B8", "#6D001A",
		"#FFA800", "#000000", "#FF3881", "#FFD635", "#E4ABFF", "#00CCC0", "#FF99AA", "#00CC78",
		"#811E9F", "#B44AC0", "#515252", "#6D482F", "#DE107F", "#2450A4", "#3690EA", "#898D90",
	}
}

// Palette2022 returns a fresh palette of the 2022 canvas colours.
func Palette2022() *Palette {
	p, err := NewPalette(Keys2022())
	if err != nil {
		panic(err)
	}
	return p
}

// ParseKeys normalizes a configured key list: surrounding space is trimmed
// and hex digits are upper-cased to match the dataset's spelling.
func ParseKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.ToUpper(strings.TrimSpace(k)))
	}
	return out
}
