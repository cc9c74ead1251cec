// Package boxes - rectangle algebra for annotation and detection boxes.
//
// A Box carries four coordinates in one of four encodings, the cross product of
// a Scale (absolute pixels or image-relative units) and a Layout (corner+size or
// corner+corner). Conversions along the two axes are independent and compose.
package boxes

import (
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Scale is the unit system of box coordinates.
type Scale uint8

const (
	// Absolute coordinates are in image pixels.
	Absolute Scale = iota
	// Relative coordinates are normalized by image width (x) and height (y).
	Relative
)

func (s Scale) String() string {
	switch s {
	case Absolute:
		return "abs"
	case Relative:
		return "rel"
	default:
		return "scale(" + strconv.Itoa(int(s)) + ")"
	}
}

// Layout is the meaning of the last two coordinates of a box.
type Layout uint8

const (
	// CornerSize is (left, top, width, height).
	CornerSize Layout = iota
	// CornerCorner is (left, top, right, bottom).
	CornerCorner
)

func (l Layout) String() string {
	switch l {
	case CornerSize:
		return "ltwh"
	case CornerCorner:
		return "ltrb"
	default:
		return "layout(" + strconv.Itoa(int(l)) + ")"
	}
}

// Kind tags one of the four concrete box encodings.
type Kind uint8

const (
	// LTWHAbs is corner+size in pixels. This is the COCO bbox encoding.
	LTWHAbs Kind = iota
	// LTRBAbs is corner+corner in pixels. Detectors emit this encoding.
	LTRBAbs
	// LTWHRel is corner+size in relative units.
	LTWHRel
	// LTRBRel is corner+corner in relative units.
	LTRBRel
)

// Kinds lists every encoding in declaration order.
var Kinds = []Kind{LTWHAbs, LTRBAbs, LTWHRel, LTRBRel}

// KindOf returns the encoding for a scale and a layout.
func KindOf(s Scale, l Layout) Kind {
	k := Kind(0)
	if s == Relative {
		k += 2
	}
	if l == CornerCorner {
		k++
	}
	return k
}

// Scale returns the scale axis of k.
func (k Kind) Scale() Scale {
	if k >= LTWHRel {
		return Relative
	}
	return Absolute
}

// Layout returns the layout axis of k.
func (k Kind) Layout() Layout {
	if k%2 == 1 {
		return CornerCorner
	}
	return CornerSize
}

// String returns the command line name of k, e.g. "ltwh_abs".
func (k Kind) String() string {
	return k.Layout().String() + "_" + k.Scale().String()
}

// ParseKind parses a name produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown box kind %q", s)
}

// Box is a rectangle in one of the four encodings.
type Box struct {
	Kind   Kind
	Coords [4]float64
}

// FromCoordinates returns a box of the given kind holding coords verbatim.
func FromCoordinates(kind Kind, coords [4]float64) Box {
	return Box{Kind: kind, Coords: coords}
}

// Coordinates returns the four raw coordinates in the box's own encoding.
func (b Box) Coordinates() [4]float64 {
	return b.Coords
}

// Left returns the left edge.
func (b Box) Left() float64 { return b.Coords[0] }

// Top returns the top edge.
func (b Box) Top() float64 { return b.Coords[1] }

// Right returns the right edge regardless of layout.
func (b Box) Right() float64 {
	if b.Kind.Layout() == CornerCorner {
		return b.Coords[2]
	}
	return b.Coords[0] + b.Coords[2]
}

// Bottom returns the bottom edge regardless of layout.
func (b Box) Bottom() float64 {
	if b.Kind.Layout() == CornerCorner {
		return b.Coords[3]
	}
	return b.Coords[1] + b.Coords[3]
}

// Width returns the horizontal extent in the box's own scale.
func (b Box) Width() float64 {
	if b.Kind.Layout() == CornerCorner {
		return b.Coords[2] - b.Coords[0]
	}
	return b.Coords[2]
}

// Height returns the vertical extent in the box's own scale.
func (b Box) Height() float64 {
	if b.Kind.Layout() == CornerCorner {
		return b.Coords[3] - b.Coords[1]
	}
	return b.Coords[3]
}

// Area is always derived from Width and Height.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Rectangle converts an absolute box to integer pixel bounds.
//
// Fractional edges are floored, so a crop may lose a fraction of a pixel on
// each side. Relative boxes have no pixel meaning and yield the zero rectangle.
func (b Box) Rectangle() image.Rectangle {
	if b.Kind.Scale() != Absolute {
		return image.Rectangle{}
	}
	return image.Rect(
		int(math.Floor(b.Left())),
		int(math.Floor(b.Top())),
		int(math.Floor(b.Right())),
		int(math.Floor(b.Bottom())),
	).Canon()
}

// String renders the coordinates as space separated numbers, the inverse of FromString.
func (b Box) String() string {
	parts := make([]string, len(b.Coords))
	for i, c := range b.Coords {
		parts[i] = strconv.FormatFloat(c, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
