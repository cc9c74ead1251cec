package images

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/nvr-ai/go-alpr/boxes"
	"github.com/nvr-ai/go-alpr/plate"
)

// Canvas returns a drawable copy of img.
func Canvas(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// StrokeWidth is the outline width used for a rectangle: one fifteenth of the
// side of a square of the same area, at least one pixel.
func StrokeWidth(r image.Rectangle) int {
	area := float64(r.Dx() * r.Dy())
	return max(1, int(math.Sqrt(area)/15))
}

// DrawRect outlines r on dst. The stroke grows inward from the edges of r.
func DrawRect(dst draw.Image, r image.Rectangle, c color.Color) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	w := StrokeWidth(r)
	src := image.NewUniform(c)

	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(dst, edge.Intersect(r), src, image.Point{}, draw.Over)
	}
}

// DrawBox outlines an absolute box on dst.
func DrawBox(dst draw.Image, b boxes.Box, c color.Color) {
	DrawRect(dst, b.Rectangle(), c)
}

// DrawSymbols outlines every symbol box. offset moves crop coordinates into
// dst coordinates and is zero when dst is the crop itself.
func DrawSymbols(dst draw.Image, symbols []plate.Symbol, offset image.Point, c color.Color) {
	for _, s := range symbols {
		DrawRect(dst, s.Rect.Rectangle().Add(offset), c)
	}
}

// DrawPlate outlines the plate and writes its text under the bottom-left
// corner, scaled to three quarters of the plate height.
func DrawPlate(dst draw.Image, p plate.Plate, c color.Color) {
	rect := p.Rect.Rectangle()
	DrawRect(dst, rect, c)

	text := p.String()
	size := int(0.75 * float64(rect.Dy()))
	if text == "" || size <= 0 {
		return
	}

	mask := textMask(text)
	scale := float64(size) / float64(mask.Bounds().Dy())
	width := max(1, int(float64(mask.Bounds().Dx())*scale))
	scaled := imaging.Resize(mask, width, size, imaging.NearestNeighbor)

	at := image.Pt(rect.Min.X, rect.Max.Y)
	target := scaled.Bounds().Add(at)
	draw.DrawMask(dst, target, image.NewUniform(c), image.Point{}, scaled, image.Point{}, draw.Over)
}

// textMask renders text in the 7x13 bitmap face. Opaque pixels are glyph ink.
func textMask(text string) *image.Alpha {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	mask := image.NewAlpha(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
	return mask
}
