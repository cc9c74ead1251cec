// Package yolo reads YOLO-style label files and converts labelled image
// directories into COCO datasets.
package yolo

import (
	"strconv"

	"github.com/nvr-ai/go-alpr/boxes"
	"github.com/nvr-ai/go-alpr/coco"
)

// BBox is one canonical YOLO label line: a class id and a center+size box in
// image-relative units.
type BBox struct {
	Class int
	CX    float64
	CY    float64
	W     float64
	H     float64
}

// ParseBBox parses "class cx cy w h".
func ParseBBox(line string) (BBox, error) {
	// Same field rules as any other annotated line, only the meaning differs.
	ann, err := boxes.ParseAnnotatedBox(line, boxes.LTWHRel)
	if err != nil {
		return BBox{}, err
	}
	c := ann.Box.Coords
	return BBox{Class: ann.Class, CX: c[0], CY: c[1], W: c[2], H: c[3]}, nil
}

// Area returns w*h in relative units.
func (b BBox) Area() float64 {
	return b.W * b.H
}

// Box returns the equivalent corner+size relative box.
func (b BBox) Box() boxes.Box {
	return boxes.FromCoordinates(boxes.LTWHRel, [4]float64{
		b.CX - b.W/2,
		b.CY - b.H/2,
		b.W,
		b.H,
	})
}

// ToCOCO returns the absolute corner+size bbox for an image of imgW x imgH pixels.
func (b BBox) ToCOCO(imgW, imgH int) coco.BBox {
	w, h := float64(imgW), float64(imgH)
	return coco.BBox{
		w * (b.CX - b.W/2),
		h * (b.CY - b.H/2),
		w * b.W,
		h * b.H,
	}
}

// Annotated returns the line as a class-tagged box.
func (b BBox) Annotated() boxes.AnnotatedBox {
	return boxes.AnnotatedBox{Class: b.Class, Box: b.Box()}
}

func (b BBox) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return strconv.Itoa(b.Class) + " " + f(b.CX) + " " + f(b.CY) + " " + f(b.W) + " " + f(b.H)
}
