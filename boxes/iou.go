package boxes

import "github.com/chewxy/math32"

// IoU returns the intersection over union of two boxes.
//
// Both boxes are compared in corner+corner form at their own scale, so callers
// must pass boxes of the same scale. Disjoint or degenerate boxes give 0.
func IoU(a, b Box) float32 {
	ix1 := math32.Max(float32(a.Left()), float32(b.Left()))
	iy1 := math32.Max(float32(a.Top()), float32(b.Top()))
	ix2 := math32.Min(float32(a.Right()), float32(b.Right()))
	iy2 := math32.Min(float32(a.Bottom()), float32(b.Bottom()))

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH

	union := float32(a.Area()) + float32(b.Area()) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
